package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContext() *ExprContext {
	return &ExprContext{
		Event:       "push",
		Branch:      "main",
		SHA:         "4f2a9c1",
		Environment: EnvProduction,
		RunID:       "01HZX",
		Needs: map[string]NeedResult{
			"build": {Result: "succeeded", Outputs: map[string]string{"image_tag": "ghcr.io/acme/web:4f2a9c1"}},
		},
		Env:                  map[string]string{"REGISTRY": "ghcr.io/acme"},
		Secrets:              map[string]string{"TOKEN": "s3cr3t"},
		DirectNeedsSucceeded: true,
	}
}

func TestVariableInterpreter_Resolve(t *testing.T) {
	vi := NewVariableInterpreter(sampleContext())

	tests := []struct {
		in   string
		want string
	}{
		{in: "plain text", want: "plain text"},
		{in: "${{ env.REGISTRY }}/web:${{ sha }}", want: "ghcr.io/acme/web:4f2a9c1"},
		{in: "deploy ${{ needs.build.outputs.image_tag }}", want: "deploy ghcr.io/acme/web:4f2a9c1"},
		{in: `${{ needs["build"].result }}`, want: "succeeded"},
		{in: "${{branch}} on ${{ event }}", want: "main on push"},
		{in: "${{ env.MISSING }}", want: ""},
		{in: "${{ 1 + 2 }}", want: "3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := vi.Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := vi.Resolve("${{ 1 + }}")
	assert.Error(t, err)
}

func TestVariableInterpreter_ResolveMap(t *testing.T) {
	vi := NewVariableInterpreter(sampleContext())
	out, err := vi.ResolveMap(map[string]string{"IMAGE": "${{ needs.build.outputs.image_tag }}", "X": "y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"IMAGE": "ghcr.io/acme/web:4f2a9c1", "X": "y"}, out)

	out, err = vi.ResolveMap(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestEvaluateCondition(t *testing.T) {
	tests := []struct {
		name   string
		cond   string
		mutate func(*ExprContext)
		want   bool
	}{
		{name: "empty means success", cond: "", want: true},
		{name: "empty after failure", cond: "", mutate: func(c *ExprContext) { c.AncestorFailed = true }, want: false},
		{name: "empty with skipped need", cond: "", mutate: func(c *ExprContext) { c.DirectNeedsSucceeded = false }, want: false},
		{name: "failure", cond: "failure()", mutate: func(c *ExprContext) { c.AncestorFailed = true }, want: true},
		{name: "failure without failure", cond: "failure()", want: false},
		{name: "always", cond: "always()", mutate: func(c *ExprContext) { c.Cancelled = true; c.AncestorFailed = true }, want: true},
		{name: "cancelled", cond: "cancelled()", mutate: func(c *ExprContext) { c.Cancelled = true }, want: true},
		{name: "success when cancelled", cond: "success()", mutate: func(c *ExprContext) { c.Cancelled = true }, want: false},
		{name: "implicit success", cond: "branch == 'main'", want: true},
		{name: "implicit success blocks", cond: "branch == 'main'", mutate: func(c *ExprContext) { c.AncestorFailed = true }, want: false},
		{name: "status name inside a string", cond: "branch != 'always()'", mutate: func(c *ExprContext) { c.AncestorFailed = true }, want: false},
		{name: "wrapped", cond: "${{ always() && event == 'push' }}", want: true},
		{name: "needs result", cond: "failure() && needs.build.result == 'failed'", mutate: func(c *ExprContext) {
			c.AncestorFailed = true
			c.Needs["build"] = NeedResult{Result: "failed"}
		}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sampleContext()
			if tt.mutate != nil {
				tt.mutate(c)
			}
			got, err := EvaluateCondition(tt.cond, c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUsesStatusFunction(t *testing.T) {
	assert.True(t, usesStatusFunction("always()"))
	assert.True(t, usesStatusFunction("event == 'push' && (failure() || cancelled())"))
	assert.False(t, usesStatusFunction("inputs.note == 'success()'"))
	assert.False(t, usesStatusFunction(`branch == "failure()"`))
	assert.False(t, usesStatusFunction("needs.build.result == 'failed'"))
	assert.False(t, usesStatusFunction("success( &&"))
}

func TestCompileCondition(t *testing.T) {
	assert.NoError(t, CompileCondition(""))
	assert.NoError(t, CompileCondition("failure() || cancelled()"))
	assert.NoError(t, CompileCondition("${{ needs.build.result == 'succeeded' }}"))
	assert.Error(t, CompileCondition("success( &&"))
	assert.Error(t, CompileCondition("'not a bool'"))
}

func TestSecretReferences(t *testing.T) {
	refs := SecretReferences(`aws --key ${{ secrets.AWS_ACCESS_KEY_ID }} ${{ secrets["KUBECONFIG_DEV"] }} $PLAIN secrets.IGNORED`)
	assert.Equal(t, []string{"AWS_ACCESS_KEY_ID", "KUBECONFIG_DEV"}, refs)
	assert.Empty(t, SecretReferences("no refs"))
}
