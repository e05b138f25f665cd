package secrets

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
)

// ErrMissingSecrets is returned when required secrets have no value
var ErrMissingSecrets = errors.New("missing required secrets")

// Store resolves the secret values a stage may see
type Store struct {
	catalog  Catalog
	provider Provider
}

func NewStore(catalog Catalog, provider Provider) *Store {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Store{catalog: catalog, provider: provider}
}

func (s *Store) Catalog() Catalog {
	return s.catalog
}

// Resolved is the outcome of ForEnvironment
type Resolved struct {
	Values  map[string]string
	Missing []string
}

// Err wraps ErrMissingSecrets when required names are missing
func (r Resolved) Err() error {
	if len(r.Missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingSecrets, strings.Join(r.Missing, ", "))
}

// ForEnvironment returns the global secrets plus those scoped to env. Names
// listed in the environment's secrets are required; missing ones are
// reported. A nil env yields only global secrets.
func (s *Store) ForEnvironment(env *pipeline.Environment) Resolved {
	envName := ""
	if env != nil {
		envName = env.Name
	}

	res := Resolved{Values: map[string]string{}}
	for name, entry := range s.catalog {
		if !entry.Global() && (envName == "" || !entry.AllowedIn(envName)) {
			continue
		}
		if v, ok := s.provider.Lookup(name); ok {
			res.Values[name] = v
		}
	}

	if env != nil {
		for _, name := range env.Secrets {
			if v, ok := s.provider.Lookup(name); ok {
				res.Values[name] = v
				continue
			}
			if entry, known := s.catalog[name]; known && entry.Optional {
				continue
			}
			res.Missing = append(res.Missing, name)
		}
	}
	sort.Strings(res.Missing)
	return res
}
