package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "missing name",
			doc:     "stages: [{name: a, steps: [{run: x}]}]",
			wantErr: "name is required",
		},
		{
			name:    "no stages",
			doc:     "name: p",
			wantErr: "at least one stage",
		},
		{
			name:    "duplicate stage",
			doc:     "name: p\nstages: [{name: a, steps: [{run: x}]}, {name: a, steps: [{run: y}]}]",
			wantErr: `stage "a": duplicate name`,
		},
		{
			name:    "missing need",
			doc:     "name: p\nstages: [{name: a, needs: [ghost], steps: [{run: x}]}]",
			wantErr: "nonexistent node",
		},
		{
			name:    "cycle",
			doc:     "name: p\nstages: [{name: a, needs: [b], steps: [{run: x}]}, {name: b, needs: [a], steps: [{run: y}]}]",
			wantErr: "cycle detected",
		},
		{
			name:    "undeclared environment",
			doc:     "name: p\nenvironments: {qa: {branch: qa}}\nstages: [{name: a, environment: production, steps: [{run: x}]}]",
			wantErr: `environment "production" is not declared`,
		},
		{
			name:    "run and uses",
			doc:     "name: p\nstages: [{name: a, steps: [{run: x, uses: health-check, with: {url: http://x}}]}]",
			wantErr: "mutually exclusive",
		},
		{
			name:    "neither run nor uses",
			doc:     "name: p\nstages: [{name: a, steps: [{name: noop}]}]",
			wantErr: "one of run or uses",
		},
		{
			name:    "unknown action",
			doc:     "name: p\nstages: [{name: a, steps: [{uses: docker-build}]}]",
			wantErr: `unknown action "docker-build"`,
		},
		{
			name:    "builtin missing param",
			doc:     "name: p\nstages: [{name: a, steps: [{uses: health-check}]}]",
			wantErr: "requires with.url",
		},
		{
			name:    "bad condition",
			doc:     "name: p\nstages: [{name: a, if: 'success( &&', steps: [{run: x}]}]",
			wantErr: "if:",
		},
		{
			name:    "unsupported shell",
			doc:     "name: p\nstages: [{name: a, steps: [{run: x, shell: zsh}]}]",
			wantErr: `unsupported shell "zsh"`,
		},
		{
			name:    "require tests",
			doc:     "name: p\nstages: [{name: build, steps: [{run: x}]}, {name: deploy, needs: [build], environment: staging, steps: [{run: y}]}]",
			wantErr: `requires tests, stage must depend on "test"`,
		},
		{
			name:    "notification status",
			doc:     "name: p\nnotifications: {stages: [exploded]}\nstages: [{name: a, steps: [{run: x}]}]",
			wantErr: `unknown stage status "exploded"`,
		},
		{
			name:    "invalid stage name",
			doc:     "name: p\nstages: [{name: 'has space', steps: [{run: x}]}]",
			wantErr: "invalid name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPipeline)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	_, err := Parse([]byte("stages: [{name: a, steps: [{uses: nope}]}, {name: b, environment: mars, steps: [{run: x}]}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), `unknown action "nope"`)
	assert.Contains(t, err.Error(), `environment "mars"`)
}

func TestValidate_RequireTestsTransitive(t *testing.T) {
	_, err := Parse([]byte(`
name: p
stages:
  - {name: test, steps: [{run: make test}]}
  - {name: build, needs: [test], steps: [{run: make}]}
  - {name: deploy, needs: [build], environment: staging, steps: [{run: ./deploy}]}
`))
	assert.NoError(t, err)
}

func TestPipeline_Graph(t *testing.T) {
	pl, err := Load("testdata/web-app.yaml")
	require.NoError(t, err)
	g, err := pl.Graph()
	require.NoError(t, err)
	order := g.TopologicalOrder()
	assert.Equal(t, "build", order[0])
	assert.Equal(t, "test", order[1])
	assert.Equal(t, "rollback-prod", order[len(order)-1])
}
