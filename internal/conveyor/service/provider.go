package service

import (
	"errors"
	"io/fs"

	"github.com/go-arcade/conveyor/internal/conveyor/config"
	"github.com/go-arcade/conveyor/internal/pkg/orchestrator"
	"github.com/go-arcade/conveyor/internal/pkg/secrets"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/google/wire"
)

// ProviderSet 提供服务层相关的依赖
var ProviderSet = wire.NewSet(ProvidePipelineService)

// ProvidePipelineService loads the configured pipeline directory. A missing
// directory leaves the registry empty; broken files are logged.
func ProvidePipelineService(conf config.PipelineConfig, orch *orchestrator.Orchestrator, store *secrets.Store, logger *log.Logger) *PipelineService {
	svc := NewPipelineService(conf.Dir, orch, store.Catalog(), *logger)
	if err := svc.LoadDir(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warnw("pipeline directory does not exist", "dir", conf.Dir)
		} else {
			log.Errorw("load pipelines", "dir", conf.Dir, "error", err)
		}
	}
	return svc
}
