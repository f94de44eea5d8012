// Package config loads runtime settings from an optional TOML file
// (~/.doccontext/config.toml) and the environment.
//
// Precedence, lowest first: built-in defaults, the config file, DOCCONTEXT_*
// variables. OPENAI_API_KEY and JINA_API_KEY fill embedding.api_key when the
// matching provider is selected and no key is set otherwise.
//
// Example file:
//
//	db_path  = "~/.doccontext/doccontext.db"
//	data_dir = "~/.doccontext/data"
//
//	[embedding]
//	provider = "compat"
//	base_url = "http://localhost:11434/v1"
//	model    = "nomic-embed-text"
//
//	[log]
//	level  = "debug"
//	format = "json"
package config
