package trigger

import (
	"testing"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webApp(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	pl, err := pipeline.Load("../pipeline/testdata/web-app.yaml")
	require.NoError(t, err)
	return pl
}

func TestResolve_Push(t *testing.T) {
	pl := webApp(t)
	tests := []struct {
		ref    string
		env    string
		stages []string
	}{
		{"refs/heads/develop", pipeline.EnvDevelopment, []string{"build", "test", "deploy-dev"}},
		{"refs/heads/staging", pipeline.EnvStaging, []string{"build", "test", "deploy-staging"}},
		{"refs/heads/main", pipeline.EnvProduction, []string{"build", "test", "deploy-prod", "rollback-prod"}},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			plan, err := NewResolver(log.Nop()).Resolve(pl, Event{Name: EventPush, Ref: tt.ref, SHA: "abc"})
			require.NoError(t, err)
			assert.Equal(t, tt.env, plan.EnvironmentName())
			assert.Equal(t, tt.stages, plan.Stages)
			assert.Equal(t, BranchFromRef(tt.ref), plan.Branch)
			assert.False(t, plan.Selected("nope"))
		})
	}
}

func TestResolve_NotTriggered(t *testing.T) {
	pl := webApp(t)
	tests := []struct {
		name string
		ev   Event
	}{
		{"feature push", Event{Name: EventPush, Ref: "refs/heads/feature/x"}},
		{"tag push", Event{Name: EventPush, Ref: "refs/tags/main"}},
		{"pr into staging", Event{Name: EventPullRequest, Ref: "refs/heads/fix", BaseRef: "staging"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(pl, tt.ev)
			assert.ErrorIs(t, err, ErrNotTriggered)
		})
	}

	pl.Triggers.Dispatch = nil
	_, err := Resolve(pl, Event{Name: EventDispatch, Ref: "refs/heads/main"})
	assert.ErrorIs(t, err, ErrNotTriggered)

	_, err = Resolve(pl, Event{Name: "release", Ref: "refs/heads/main"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestResolve_PullRequestNeverDeploys(t *testing.T) {
	plan, err := Resolve(webApp(t), Event{Name: EventPullRequest, Ref: "refs/heads/feature/login", BaseRef: "refs/heads/main"})
	require.NoError(t, err)
	assert.Equal(t, "feature/login", plan.Branch)
	assert.Nil(t, plan.Environment)
	assert.Equal(t, []string{"build", "test"}, plan.Stages)
}

func TestResolve_Dispatch(t *testing.T) {
	pl := webApp(t)

	plan, err := Resolve(pl, Event{Name: EventDispatch, Ref: "refs/heads/develop", Inputs: map[string]string{
		InputEnvironment: "staging",
		InputStages:      "build, deploy-staging",
	}})
	require.NoError(t, err)
	assert.Equal(t, pipeline.EnvStaging, plan.EnvironmentName())
	assert.Equal(t, []string{"build", "deploy-staging"}, plan.Stages)

	_, err = Resolve(pl, Event{Name: EventDispatch, Ref: "refs/heads/develop", Inputs: map[string]string{InputEnvironment: "qa"}})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = Resolve(pl, Event{Name: EventDispatch, Ref: "refs/heads/develop", Inputs: map[string]string{InputStages: "lint"}})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	// deploy stages of another environment selected explicitly are dropped
	_, err = Resolve(pl, Event{Name: EventDispatch, Ref: "refs/heads/develop", Inputs: map[string]string{InputStages: "deploy-prod"}})
	assert.ErrorIs(t, err, ErrNotTriggered)
}

func TestResolve_GlobBranches(t *testing.T) {
	pl := webApp(t)
	pl.Triggers.Push.Branches = append(pl.Triggers.Push.Branches, "release/*")
	pl.Environments["staging"].Branch = "release/*"

	plan, err := Resolve(pl, Event{Name: EventPush, Ref: "refs/heads/release/1.4"})
	require.NoError(t, err)
	assert.Equal(t, pipeline.EnvStaging, plan.EnvironmentName())
}

func TestBranchFromRef(t *testing.T) {
	assert.Equal(t, "main", BranchFromRef("refs/heads/main"))
	assert.Equal(t, "main", BranchFromRef("main"))
	assert.Equal(t, "", BranchFromRef("refs/tags/v1"))
	assert.Equal(t, "", BranchFromRef("refs/pull/3/merge"))
}
