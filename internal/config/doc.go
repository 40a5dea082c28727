// Package config handles configuration loading for kitchat.
//
// # Overview
//
// Configuration is optional. Load layers a YAML or TOML file over Default()
// and then applies environment overrides, so kitchat starts with no file at
// all and talks to http://localhost:8000.
//
// # Configuration File
//
// Location (in order):
//
//  1. --config flag
//  2. KITCHAT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/kitchat/config.yaml
//
// Files ending in .toml are parsed as TOML; anything else as YAML.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	api:
//	  base_url: "${KITCHAT_BACKEND}"
//
// KITCHAT_API_URL, when set, replaces api.base_url after the file is read.
//
// # Example
//
//	api:
//	  base_url: "http://localhost:8000"
//
//	transport:
//	  reconnect_delay: "3s"
//	  max_reconnect_delay: "30s"   # empty keeps the delay fixed
//	  send_timeout: "60s"
//	  request_timeout: "60s"
//
//	health:
//	  probe_timeout: "15s"
//
//	storage:
//	  path: "~/.local/share/kitchat/kitchat.db"
//	  watch: true
//
//	logging:
//	  level: "info"     # debug, info, warn, error
//	  format: "text"    # text, json
//	  file: ""          # empty logs to stderr
//
// # Validation
//
// Validate uses ozzo-validation. The base URL must be http or https with a
// host, durations must be positive, and max_reconnect_delay, when set, must
// not be below reconnect_delay.
package config
