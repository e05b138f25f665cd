package router

import (
	"maps"
	"slices"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/gofiber/fiber/v2"
)

func (rt *Router) pipelineRouter(r fiber.Router, auth fiber.Handler) {
	pipelineGroup := r.Group("/pipelines")
	{
		pipelineGroup.Get("/", auth, rt.listPipelines)          // GET /pipelines - list loaded pipelines
		pipelineGroup.Get("/:name", auth, rt.getPipeline)       // GET /pipelines/:name - full definition
		pipelineGroup.Post("/reload", auth, rt.reloadPipelines) // POST /pipelines/reload - reread the directory
	}
}

type pipelineSummary struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages"`
	// Order lists the stages in the order they can run
	Order        []string `json:"order"`
	Environments []string `json:"environments"`
}

func summarize(pl *pipeline.Pipeline) pipelineSummary {
	s := pipelineSummary{Name: pl.Name}
	for _, stage := range pl.Stages {
		s.Stages = append(s.Stages, stage.Name)
	}
	s.Environments = slices.Sorted(maps.Keys(pl.Environments))
	if g, err := pl.Graph(); err == nil {
		s.Order = g.TopologicalOrder()
	}
	return s
}

func (rt *Router) listPipelines(c *fiber.Ctx) error {
	list := rt.Pipelines.List()
	out := make([]pipelineSummary, 0, len(list))
	for _, pl := range list {
		out = append(out, summarize(pl))
	}
	return http.WithRepJSON(c, out)
}

func (rt *Router) getPipeline(c *fiber.Ctx) error {
	pl, err := rt.Pipelines.Get(c.Params("name"))
	if err != nil {
		return withErr(c, err)
	}
	return http.WithRepJSON(c, pl)
}

func (rt *Router) reloadPipelines(c *fiber.Ctx) error {
	if err := rt.Pipelines.LoadDir(); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest, err.Error(), c.Path())
	}
	return rt.listPipelines(c)
}
