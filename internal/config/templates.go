package config

import (
	"fmt"
	"os"
)

// Template returns a commented starter config holding the defaults.
func Template() string {
	return defaultTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `# peer address for ping, send and status
addr = "[::1]:5000"

[log]
level = "info"
format = "console" # console | json
timestamp = true
no_color = false

[session]
connect_timeout = "60s"
handshake_timeout = "5s"
read_timeout = "0s" # 0 waits forever
write_timeout = "15s"
max_connect_attempts = 0
probe_status = false
retry_interval = "1s"
max_payload_bytes = 67108864
max_queued_frames = 64

[launcher]
# game_dir = "/home/me/StarCraftII"
# version = "Base75689"
# display_mode = "windowed" # windowed | borderless | fullscreen
# egl_path = ""
# osmesa_path = ""
# data_version = ""
verbose = false
extra = []
on_close = "keep" # keep | wait | kill

[mock]
addr = "127.0.0.1:5000"
metrics_addr = ""
game_loops = 100
`
