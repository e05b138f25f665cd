package metrics

import (
	"github.com/google/wire"
)

// ProviderSet is a Wire provider set for metrics
var ProviderSet = wire.NewSet(
	NewMetricsServer,
	ProvidePipelineMetrics,
)

// NewMetricsServer creates a new metrics server from config
func NewMetricsServer(config MetricsConfig) *Server {
	return NewServer(config)
}

// ProvidePipelineMetrics registers the pipeline collectors on the server registry
func ProvidePipelineMetrics(server *Server) *PipelineMetrics {
	return NewPipelineMetrics(server.GetRegistry())
}
