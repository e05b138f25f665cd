package pipeline

import (
	"sort"
	"time"

	"github.com/go-arcade/conveyor/pkg/duration"
	"github.com/ryanuber/go-glob"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// DefaultApprovalTimeout applies to approvals without a timeout
const DefaultApprovalTimeout = 24 * time.Hour

// DefaultEnvironments is the branch convention used when a pipeline declares
// none: develop deploys to development automatically, staging requires tests,
// main requires a manual approval before production.
func DefaultEnvironments() map[string]*Environment {
	return map[string]*Environment{
		EnvDevelopment: {
			Name:    EnvDevelopment,
			Branch:  "develop",
			Secrets: []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"},
		},
		EnvStaging: {
			Name:         EnvStaging,
			Branch:       "staging",
			Secrets:      []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"},
			RequireTests: true,
		},
		EnvProduction: {
			Name:    EnvProduction,
			Branch:  "main",
			Secrets: []string{"AWS_PROD_ACCESS_KEY_ID", "AWS_PROD_SECRET_ACCESS_KEY"},
			Approval: &Approval{
				Required: true,
				Timeout:  duration.Duration(DefaultApprovalTimeout),
			},
		},
	}
}

// EnvironmentForBranch returns the environment whose branch pattern matches
// branch. Exact matches win over globs; remaining ties resolve by name.
func (p *Pipeline) EnvironmentForBranch(branch string) *Environment {
	if branch == "" {
		return nil
	}
	names := make([]string, 0, len(p.Environments))
	for name := range p.Environments {
		names = append(names, name)
	}
	sort.Strings(names)

	var globMatch *Environment
	for _, name := range names {
		env := p.Environments[name]
		if env.Branch == branch {
			return env
		}
		if globMatch == nil && env.Branch != "" && glob.Glob(env.Branch, branch) {
			globMatch = env
		}
	}
	return globMatch
}
