package secrets

import "github.com/google/wire"

// ProviderSet provides the secret store
var ProviderSet = wire.NewSet(ProvideStore)

// Conf configures where secret values come from
type Conf struct {
	// EnvPrefix is prepended to secret names when reading the environment
	EnvPrefix string `mapstructure:"envPrefix"`
	// Catalog adds or overrides entries of the default catalog
	Catalog []Entry `mapstructure:"catalog"`
}

// ProvideStore reads secrets from the process environment
func ProvideStore(conf Conf) *Store {
	return NewStore(DefaultCatalog().Merge(conf.Catalog...), EnvProvider{Prefix: conf.EnvPrefix})
}
