package foodstagram

import _ "embed"

// DefaultConfig contains the starter foodstagram.yaml written by `foodstagram init`.
//go:embed foodstagram.example.yaml
var DefaultConfig []byte

// ConfigTemplate returns a safe copy of the default configuration template.
func ConfigTemplate() []byte {
	buf := make([]byte, len(DefaultConfig))
	copy(buf, DefaultConfig)
	return buf
}
