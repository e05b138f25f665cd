package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stageData struct {
	Pipeline    string
	Stage       string
	Status      string
	Environment string
	RunID       string
	Branch      string
	SHA         string
	Duration    time.Duration
	Error       string
}

func TestRenderType_Stage(t *testing.T) {
	e := NewTemplateEngine()
	title, content, err := e.RenderType(TemplateTypeStage, stageData{
		Pipeline:    "web-app",
		Stage:       "deploy-production",
		Status:      "FAILED",
		Environment: "production",
		RunID:       "01J9Z",
		Branch:      "main",
		SHA:         "4f2a9c1d0e",
		Duration:    1500 * time.Millisecond,
		Error:       "exit status 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "[web-app] stage deploy-production failed", title)
	assert.Contains(t, content, "(Production)")
	assert.Contains(t, content, "main @ 4f2a9c1")
	assert.Contains(t, content, "*Duration:* 2s")
	assert.Contains(t, content, "*Error:* exit status 1")
}

func TestRenderType_OmitsEmptyFields(t *testing.T) {
	_, content, err := NewTemplateEngine().RenderType(TemplateTypeStage, stageData{Stage: "build", Status: "succeeded"})
	require.NoError(t, err)
	assert.NotContains(t, content, "Duration")
	assert.NotContains(t, content, "Error")
}

func TestOverridesAndErrors(t *testing.T) {
	e := NewTemplateEngine(&Template{Type: TemplateTypeRun, Title: "{{.Pipeline | upper}}", Content: "{{title .Status}}"})
	title, content, err := e.RenderType(TemplateTypeRun, struct{ Pipeline, Status string }{"web", "waiting_approval"})
	require.NoError(t, err)
	assert.Equal(t, "WEB", title)
	assert.Equal(t, "Waiting Approval", content)

	_, _, err = e.RenderType("unknown", nil)
	assert.ErrorContains(t, err, "no template for unknown")

	assert.Error(t, e.ValidateTemplate("{{.Broken"))
	assert.NoError(t, e.ValidateTemplate("{{short .SHA}}"))
}
