package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/sc2ctl/internal/testutil/testlog"
)

type row struct {
	Kind     string   `json:"kind" yaml:"kind"`
	Status   string   `json:"status" yaml:"status"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	hidden   int
	Skipped  string `json:"-" yaml:"-"`
}

func TestParseFormat(t *testing.T) {
	testlog.Start(t)
	for in, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, " yaml ": FormatYAML, "table": FormatTable} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
}

func TestTableStruct(t *testing.T) {
	testlog.Start(t)
	got, err := TableFormatter{}.Format(&row{Kind: "Ping", Status: "Launched", hidden: 1, Skipped: "x"})
	require.NoError(t, err)
	require.Equal(t, "kind:    Ping\nstatus:  Launched\n", got)

	got, err = TableFormatter{}.Format(row{Kind: "Step", Status: "InGame", Warnings: []string{"a", "b"}})
	require.NoError(t, err)
	require.Contains(t, got, "warnings:  a, b\n")
}

func TestTableSlice(t *testing.T) {
	testlog.Start(t)
	got, err := TableFormatter{}.Format([]row{{Kind: "Ping", Status: "Launched"}, {Kind: "CreateGame", Status: "InitGame"}})
	require.NoError(t, err)
	require.Equal(t, "KIND        STATUS    WARNINGS\nPing        Launched  \nCreateGame  InitGame  \n", got)

	got, err = TableFormatter{}.Format([]string{"a.SC2Map", "b.SC2Map"})
	require.NoError(t, err)
	require.Equal(t, "a.SC2Map\nb.SC2Map\n", got)

	got, err = TableFormatter{}.Format([]row{})
	require.NoError(t, err)
	require.Equal(t, "No results.\n", got)
}

func TestStructuredFormats(t *testing.T) {
	testlog.Start(t)
	data := row{Kind: "Ping", Status: "Launched"}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, NewFormatter(FormatJSON), data))
	require.JSONEq(t, `{"kind":"Ping","status":"Launched"}`, buf.String())

	got, err := NewFormatter(FormatYAML).Format(data)
	require.NoError(t, err)
	require.YAMLEq(t, "kind: Ping\nstatus: Launched\n", got)

	_, err = JSONFormatter{}.Format(make(chan int))
	require.Error(t, err)
}
