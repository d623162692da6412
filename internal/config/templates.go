package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Template returns the default config file contents.
func Template() string {
	return defaultTemplate
}

// WriteTemplate writes the default config to path, creating its directory.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `# rconctl configuration
host = "localhost"
port = 25575
# Leave empty to be prompted when stdin is a terminal.
password = ""

history_file = "~/.rconctl_history"
history_limit = 1000

connect_timeout = "5s"
# "0s" waits for replies indefinitely.
read_timeout = "0s"
write_timeout = "10s"
max_frame_bytes = 1048576

# Serve /metrics and /health on this address, e.g. "127.0.0.1:9325".
metrics_addr = ""
# metrics_cors_origins = ["http://localhost:3000"]
# Require "Authorization: Bearer <token>" on /metrics when set.
metrics_token = ""
# trace, debug, info, warn, error
log_level = "info"
`
