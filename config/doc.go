// Package config loads finder settings from a TOML file with QUICKPICK_*
// environment overrides layered on top, plus a YAML registry of named
// pickers for the command line. Precedence is defaults, then file, then
// environment. Every layer is validated as it is applied and the first
// invalid value fails the load; nothing is deferred to first use.
package config
