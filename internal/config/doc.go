// Package config handles chatbot-gateway configuration loading.
//
// # Overview
//
// Configuration is read from a YAML or TOML file (chosen by extension),
// starting from Default() so a file only needs the values it changes.
//
// # Configuration File
//
//	server:
//	  http_addr: "0.0.0.0:8000"
//	  name: "SimpleRealtimeChatbot"
//	  allowed_origins: ["*"]
//	  shutdown_timeout: "5s"
//
//	database:
//	  driver: "sqlite"       # sqlite | sqlite3 | badger | memory
//	  path: "${HOME}/.local/share/chatbot/chatbot.db"
//
//	sessions:
//	  guest_id: "guest"
//	  write_timeout: "10s"
//	  read_limit: 32768
//
//	logging:
//	  level: "info"          # debug | info | warn | error
//	  format: "text"         # text | json
//
// # Environment Variables
//
// ${VAR} references in the file are expanded before parsing. After parsing,
// these variables override the file:
//
//   - CHATBOT_HTTP_ADDR: server.http_addr
//   - CHATBOT_DB_DRIVER: database.driver
//   - CHATBOT_DB_PATH: database.path
//   - CHATBOT_GUEST_ID: sessions.guest_id
//   - CHATBOT_LOG_LEVEL: logging.level
//   - CHATBOT_LOG_FORMAT: logging.format
//
// # Validation
//
// Load rejects unknown drivers and log settings, a missing database path
// for file-backed drivers, an empty guest id and a non-positive write timeout.
package config
