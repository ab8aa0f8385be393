// Package output renders command results as tables, JSON or YAML.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json or yaml; empty means table.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("output: unknown format %q (want table, json or yaml)", raw)
	}
}

type Formatter interface {
	Format(data any) (string, error)
}

func NewFormatter(f Format) Formatter {
	switch f {
	case FormatJSON:
		return JSONFormatter{}
	case FormatYAML:
		return YAMLFormatter{}
	default:
		return TableFormatter{}
	}
}

// Write formats data onto w.
func Write(w io.Writer, f Formatter, data any) error {
	s, err := f.Format(data)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// TableFormatter prints a struct as key/value lines and a slice of
// structs as columns. Headers come from the json tag when present.
type TableFormatter struct{}

func (TableFormatter) Format(data any) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.Len() == 0 {
			return "No results.\n", nil
		}
		elem := indirect(v.Index(0))
		if elem.Kind() != reflect.Struct {
			for i := 0; i < v.Len(); i++ {
				fmt.Fprintln(w, cell(v.Index(i)))
			}
			break
		}
		fields := visibleFields(elem.Type())
		headers := make([]string, len(fields))
		for i, f := range fields {
			headers[i] = strings.ToUpper(f.name)
		}
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		for i := 0; i < v.Len(); i++ {
			row := indirect(v.Index(i))
			vals := make([]string, len(fields))
			for j, f := range fields {
				vals[j] = cell(row.Field(f.index))
			}
			fmt.Fprintln(w, strings.Join(vals, "\t"))
		}
	case reflect.Struct:
		for _, f := range visibleFields(v.Type()) {
			fv := v.Field(f.index)
			if f.omitEmpty && fv.IsZero() {
				continue
			}
			fmt.Fprintf(w, "%s:\t%s\n", f.name, cell(fv))
		}
	default:
		fmt.Fprintln(w, cell(v))
	}

	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type field struct {
	name      string
	index     int
	omitEmpty bool
}

func visibleFields(t reflect.Type) []field {
	out := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		tag, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == "-" {
			continue
		}
		if tag != "" {
			name = tag
		}
		out = append(out, field{name: name, index: i, omitEmpty: strings.Contains(opts, "omitempty")})
	}
	return out
}

func indirect(v reflect.Value) reflect.Value {
	for (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func cell(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() || ((v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && v.IsNil()) {
		return "-"
	}
	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.String {
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = v.Index(i).String()
		}
		return strings.Join(parts, ", ")
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

type JSONFormatter struct{}

func (JSONFormatter) Format(data any) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("output: json: %w", err)
	}
	return string(b) + "\n", nil
}

type YAMLFormatter struct{}

func (YAMLFormatter) Format(data any) (string, error) {
	b, err := yaml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("output: yaml: %w", err)
	}
	return string(b), nil
}
