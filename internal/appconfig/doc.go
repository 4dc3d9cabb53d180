// Package appconfig loads the chatgate server configuration.
//
// Sources apply in order: built-in defaults, an optional TOML file named by
// -config, CHATGATE_* environment variables, then command-line flags.
package appconfig
