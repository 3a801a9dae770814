package config

import (
	_ "embed"
)

//go:embed default.yaml
var defaultConfig []byte

// DefaultConfig returns the embedded default configuration document.
func DefaultConfig() []byte {
	return defaultConfig
}
