// Package config loads the YAML configuration for the protohackers binary.
//
// ${VAR} references in the file are expanded from the environment after an
// optional .env file next to the config file is loaded. Zero values are
// replaced by the defaults in defaults.go.
package config
