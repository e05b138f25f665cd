package cron

import (
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/google/wire"
)

// ProviderSet provides the process scheduler
var ProviderSet = wire.NewSet(ProvideScheduler)

// ProvideScheduler returns a stopped scheduler; jobs are added by their
// owners and the app starts it once wiring is done.
func ProvideScheduler(logger *log.Logger) (*Scheduler, func()) {
	s := New(*logger)
	return s, s.Stop
}
