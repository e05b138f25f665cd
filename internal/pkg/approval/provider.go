package approval

import (
	"fmt"

	"github.com/go-arcade/conveyor/pkg/cron"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet provides the approval gate
var ProviderSet = wire.NewSet(ProvideGate)

// ProvideGate keeps approvals in redis when configured so decisions made on
// any replica reach the waiting run, and registers the expiry sweeper.
func ProvideGate(conf Conf, client *redis.Client, scheduler *cron.Scheduler, m *metrics.PipelineMetrics, logger *log.Logger) (*Gate, error) {
	conf.SetDefaults()
	var store Store
	switch conf.Store {
	case "memory":
		store = NewMemoryStore()
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("approval store is redis but no redis address is configured")
		}
		store = NewRedisStore(client)
	default:
		return nil, fmt.Errorf("unsupported approval store: %s", conf.Store)
	}

	gate := NewGate(store, conf, m, *logger)
	if err := gate.StartSweeper(scheduler); err != nil {
		return nil, err
	}
	if logger.Log != nil {
		logger.Log.Infow("approval gate initialized", "store", conf.Store, "default_timeout", conf.DefaultTimeout)
	}
	return gate, nil
}
