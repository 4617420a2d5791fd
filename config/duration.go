package config

import (
	"errors"
	"time"
)

// Duration wraps time.Duration with the TOML (un)marshaling naoina/toml
// expects: a quoted Go duration string like "5s". This mirrors the
// wrapper type go-ethereum-family configs define for the same reason —
// naoina/toml has no built-in time.Duration support.
type Duration struct {
	time.Duration
}

// UnmarshalTOML implements the interface naoina/toml looks for.
func (d *Duration) UnmarshalTOML(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return errors.New("config: empty duration")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalTOML implements the symmetric encoder.
func (d Duration) MarshalTOML() ([]byte, error) {
	return []byte(`"` + d.Duration.String() + `"`), nil
}
