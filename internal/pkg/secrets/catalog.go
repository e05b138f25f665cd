package secrets

import (
	"slices"
	"sort"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
)

// Entry documents one secret a pipeline may use
type Entry struct {
	Name string `mapstructure:"name"`
	Role string `mapstructure:"role"`
	// Environments the secret is scoped to, global when empty
	Environments []string `mapstructure:"environments"`
	// Optional secrets are passed through when present and never reported missing
	Optional bool `mapstructure:"optional"`
}

// Global reports whether every stage may see the secret
func (e Entry) Global() bool {
	return len(e.Environments) == 0
}

// AllowedIn reports whether a stage bound to env may see the secret
func (e Entry) AllowedIn(env string) bool {
	return e.Global() || slices.Contains(e.Environments, env)
}

// Catalog is the table of known secrets keyed by name
type Catalog map[string]Entry

// DefaultCatalog is the secret table of the deployment conventions
func DefaultCatalog() Catalog {
	nonProd := []string{pipeline.EnvDevelopment, pipeline.EnvStaging}
	prod := []string{pipeline.EnvProduction}
	return NewCatalog(
		Entry{Name: "AWS_ACCESS_KEY_ID", Role: "non-prod cloud credentials", Environments: nonProd},
		Entry{Name: "AWS_SECRET_ACCESS_KEY", Role: "non-prod cloud credentials", Environments: nonProd},
		Entry{Name: "AWS_PROD_ACCESS_KEY_ID", Role: "prod cloud credentials", Environments: prod},
		Entry{Name: "AWS_PROD_SECRET_ACCESS_KEY", Role: "prod cloud credentials", Environments: prod},
		Entry{Name: "KUBECONFIG_DEV", Role: "cluster config", Environments: []string{pipeline.EnvDevelopment}, Optional: true},
		Entry{Name: "KUBECONFIG_STAGING", Role: "cluster config", Environments: []string{pipeline.EnvStaging}, Optional: true},
		Entry{Name: "KUBECONFIG_PROD", Role: "cluster config", Environments: prod, Optional: true},
		Entry{Name: "SLACK_WEBHOOK_URL", Role: "notification endpoint"},
	)
}

func NewCatalog(entries ...Entry) Catalog {
	c := make(Catalog, len(entries))
	for _, e := range entries {
		c[e.Name] = e
	}
	return c
}

// Merge returns a copy of c with extra entries added or replaced
func (c Catalog) Merge(extra ...Entry) Catalog {
	out := make(Catalog, len(c)+len(extra))
	for k, v := range c {
		out[k] = v
	}
	for _, e := range extra {
		if e.Name != "" {
			out[e.Name] = e
		}
	}
	return out
}

// Names returns the catalog names sorted
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the entry for name
func (c Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c[name]
	return e, ok
}
