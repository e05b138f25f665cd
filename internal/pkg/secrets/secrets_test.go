package secrets

import (
	"testing"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Default(t *testing.T) {
	c := DefaultCatalog()
	assert.Len(t, c, 8)

	slack, ok := c.Lookup("SLACK_WEBHOOK_URL")
	require.True(t, ok)
	assert.True(t, slack.Global())
	assert.True(t, slack.AllowedIn(pipeline.EnvProduction))

	prod := c["AWS_PROD_ACCESS_KEY_ID"]
	assert.True(t, prod.AllowedIn(pipeline.EnvProduction))
	assert.False(t, prod.AllowedIn(pipeline.EnvStaging))

	assert.True(t, c["KUBECONFIG_DEV"].Optional)
	assert.Equal(t, "AWS_ACCESS_KEY_ID", c.Names()[0])
}

func TestCatalog_Merge(t *testing.T) {
	base := DefaultCatalog()
	merged := base.Merge(Entry{Name: "NPM_TOKEN"}, Entry{Name: "SLACK_WEBHOOK_URL", Environments: []string{"staging"}})

	assert.Len(t, merged, 9)
	assert.False(t, merged["SLACK_WEBHOOK_URL"].Global())
	assert.True(t, base["SLACK_WEBHOOK_URL"].Global(), "merge must not mutate the receiver")
}

func TestStore_ForEnvironment(t *testing.T) {
	provider := MapProvider{
		"AWS_ACCESS_KEY_ID":          "dev-key",
		"AWS_SECRET_ACCESS_KEY":      "dev-secret",
		"AWS_PROD_ACCESS_KEY_ID":     "prod-key",
		"KUBECONFIG_STAGING":         "kube-staging",
		"SLACK_WEBHOOK_URL":          "https://hooks.example/x",
		"AWS_PROD_SECRET_ACCESS_KEY": "",
	}
	store := NewStore(nil, provider)
	envs := pipeline.DefaultEnvironments()

	t.Run("staging", func(t *testing.T) {
		res := store.ForEnvironment(envs[pipeline.EnvStaging])
		require.NoError(t, res.Err())
		assert.Equal(t, map[string]string{
			"AWS_ACCESS_KEY_ID":     "dev-key",
			"AWS_SECRET_ACCESS_KEY": "dev-secret",
			"KUBECONFIG_STAGING":    "kube-staging",
			"SLACK_WEBHOOK_URL":     "https://hooks.example/x",
		}, res.Values)
	})

	t.Run("production missing", func(t *testing.T) {
		res := store.ForEnvironment(envs[pipeline.EnvProduction])
		assert.Equal(t, []string{"AWS_PROD_SECRET_ACCESS_KEY"}, res.Missing)
		assert.ErrorIs(t, res.Err(), ErrMissingSecrets)
		assert.Contains(t, res.Err().Error(), "AWS_PROD_SECRET_ACCESS_KEY")
		assert.NotContains(t, res.Values, "AWS_ACCESS_KEY_ID")
	})

	t.Run("no environment", func(t *testing.T) {
		res := store.ForEnvironment(nil)
		require.NoError(t, res.Err())
		assert.Equal(t, map[string]string{"SLACK_WEBHOOK_URL": "https://hooks.example/x"}, res.Values)
	})

	t.Run("optional never missing", func(t *testing.T) {
		env := &pipeline.Environment{Name: pipeline.EnvDevelopment, Secrets: []string{"KUBECONFIG_DEV"}}
		res := store.ForEnvironment(env)
		assert.Empty(t, res.Missing)
	})
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("CONVEYOR_SECRET_SLACK_WEBHOOK_URL", "https://hooks.example/y")
	p := EnvProvider{Prefix: "CONVEYOR_SECRET_"}

	v, ok := p.Lookup("SLACK_WEBHOOK_URL")
	assert.True(t, ok)
	assert.Equal(t, "https://hooks.example/y", v)

	_, ok = p.Lookup("AWS_ACCESS_KEY_ID")
	assert.False(t, ok)

	chain := ChainProvider{MapProvider{"A": "from-map"}, p}
	v, ok = chain.Lookup("SLACK_WEBHOOK_URL")
	assert.True(t, ok)
	assert.Equal(t, "https://hooks.example/y", v)
	v, _ = chain.Lookup("A")
	assert.Equal(t, "from-map", v)
}

func TestMasker(t *testing.T) {
	m := NewMasker("hunter2", "hunter2-long", "ab", "")
	assert.Equal(t, "pw=*** and ***", m.Mask("pw=hunter2 and hunter2-long"))
	assert.Equal(t, "ab stays", m.Mask("ab stays"))

	var nilMasker *Masker
	assert.Equal(t, "plain", nilMasker.Mask("plain"))
	assert.Equal(t, "plain", NewMasker().Mask("plain"))

	assert.Equal(t, "key=***", MaskerFor(map[string]string{"K": "s3cr3t"}).Mask("key=s3cr3t"))
}

func TestLint(t *testing.T) {
	pl := &pipeline.Pipeline{
		Name:         "web-app",
		Environments: pipeline.DefaultEnvironments(),
		Stages: []*pipeline.Stage{
			{Name: "build", Steps: []*pipeline.Step{{Run: "echo ${{ secrets.SLACK_WEBHOOK_URL }}"}}},
			{Name: "leak", Steps: []*pipeline.Step{{Run: "aws s3 ls", Env: map[string]string{"K": "${{ secrets.AWS_ACCESS_KEY_ID }}"}}}},
			{Name: "deploy-prod", Environment: pipeline.EnvProduction, Steps: []*pipeline.Step{
				{Run: "deploy ${{ secrets.AWS_PROD_ACCESS_KEY_ID }} ${{ secrets['AWS_SECRET_ACCESS_KEY'] }}"},
				{Uses: "health-check", With: map[string]string{"url": "${{ secrets.UNKNOWN_URL }}"}},
			}},
		},
	}

	issues := Lint(pl, DefaultCatalog())
	require.Len(t, issues, 3)
	assert.Equal(t, Issue{Stage: "leak", Secret: "AWS_ACCESS_KEY_ID", Reason: "scoped to [development staging] but the stage has no environment"}, issues[0])
	assert.Equal(t, "deploy-prod", issues[1].Stage)
	assert.Equal(t, "AWS_SECRET_ACCESS_KEY", issues[1].Secret)
	assert.Equal(t, "UNKNOWN_URL", issues[2].Secret)
	assert.Equal(t, "stage deploy-prod: UNKNOWN_URL: not in the secrets catalog", issues[2].String())
}

func TestLint_EnvironmentLists(t *testing.T) {
	pl := &pipeline.Pipeline{
		Name: "web-app",
		Environments: map[string]*pipeline.Environment{
			"staging": {Name: "staging", Secrets: []string{"AWS_PROD_ACCESS_KEY_ID", "MYSTERY"}},
		},
	}
	issues := Lint(pl, DefaultCatalog())
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Reason, "scoped to [production]")
	assert.Contains(t, issues[1].Reason, "not in the secrets catalog")
	assert.Empty(t, Lint(&pipeline.Pipeline{Name: "x", Environments: pipeline.DefaultEnvironments()}, DefaultCatalog()))
}
