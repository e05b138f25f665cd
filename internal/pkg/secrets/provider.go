package secrets

import (
	"os"
)

// Provider looks secret values up by name
type Provider interface {
	Lookup(name string) (string, bool)
}

// EnvProvider reads secrets from the process environment, optionally
// under a prefix such as CONVEYOR_SECRET_
type EnvProvider struct {
	Prefix string
}

func (p EnvProvider) Lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(p.Prefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// MapProvider serves secrets from a static map
type MapProvider map[string]string

func (p MapProvider) Lookup(name string) (string, bool) {
	v, ok := p[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ChainProvider returns the first value found
type ChainProvider []Provider

func (c ChainProvider) Lookup(name string) (string, bool) {
	for _, p := range c {
		if v, ok := p.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}
