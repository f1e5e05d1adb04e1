// Package config handles configuration loading for todo-list.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment
// variable expansion. Files ending in .toml are decoded as TOML; any other
// extension is decoded as YAML.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from TODO_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/todo-list/config.yaml
//  3. ~/.config/todo-list/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	sessions:
//	  secret: "${TODO_SESSION_SECRET}"
//
// TODO_DB_DSN, when set, replaces database.dsn after the file is parsed.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  base_path: "/todos"            # default
//
//	database:
//	  driver: "sqlite"               # sqlite, sqlite3, pgx or mongo
//	  dsn: "~/.local/share/todo-list/todo.db"
//	  name: "todo_list"              # mongo only, default todo_list
//
//	sessions:
//	  backend: "database"            # database or redis
//	  secret: "${TODO_SESSION_SECRET}"
//	  duration: "336h"
//	  redis:
//	    addr: "localhost:6379"
//	    password: ""
//	    db: 0
//
//	accounts:
//	  bcrypt_cost: 0                 # 0 = bcrypt.DefaultCost
//
//	tailscale:
//	  enabled: false
//	  hostname: "todo"
//	  auth_key: "${TS_AUTHKEY}"
//	  state_dir: "~/.local/share/todo-list/tsnet"
//	  ephemeral: false
//
//	logging:
//	  level: "info"                  # debug, info, warn, error
//	  format: "text"                 # text or json
//
// The same keys are used in TOML:
//
//	[server]
//	http_addr = "0.0.0.0:8080"
//
//	[database]
//	driver = "pgx"
//	dsn = "postgres://todo@localhost/todo"
//
// # Validation
//
// Load applies defaults and then calls Validate, which reports the first
// missing or invalid field.
package config
