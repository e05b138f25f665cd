package secrets

import (
	"fmt"
	"slices"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
)

// Issue is one lint finding
type Issue struct {
	Stage  string
	Secret string
	Reason string
}

func (i Issue) String() string {
	if i.Stage == "" {
		return fmt.Sprintf("%s: %s", i.Secret, i.Reason)
	}
	return fmt.Sprintf("stage %s: %s: %s", i.Stage, i.Secret, i.Reason)
}

// Lint checks that every secret the pipeline references is documented in
// the catalog and that environment-scoped secrets are only referenced from
// stages bound to one of their environments.
func Lint(pl *pipeline.Pipeline, catalog Catalog) []Issue {
	var issues []Issue

	envNames := make([]string, 0, len(pl.Environments))
	for name := range pl.Environments {
		envNames = append(envNames, name)
	}
	slices.Sort(envNames)

	for _, name := range envNames {
		env := pl.Environments[name]
		for _, secret := range env.Secrets {
			entry, ok := catalog[secret]
			switch {
			case !ok:
				issues = append(issues, Issue{Secret: secret, Reason: fmt.Sprintf("listed by environment %s but not in the secrets catalog", name)})
			case !entry.AllowedIn(name):
				issues = append(issues, Issue{Secret: secret, Reason: fmt.Sprintf("listed by environment %s but scoped to %v", name, entry.Environments)})
			}
		}
	}

	for _, stage := range pl.Stages {
		for _, secret := range stageReferences(pl, stage) {
			entry, ok := catalog[secret]
			switch {
			case !ok:
				issues = append(issues, Issue{Stage: stage.Name, Secret: secret, Reason: "not in the secrets catalog"})
			case !entry.Global() && stage.Environment == "":
				issues = append(issues, Issue{Stage: stage.Name, Secret: secret, Reason: fmt.Sprintf("scoped to %v but the stage has no environment", entry.Environments)})
			case !entry.AllowedIn(stage.Environment):
				issues = append(issues, Issue{Stage: stage.Name, Secret: secret, Reason: fmt.Sprintf("scoped to %v, not %s", entry.Environments, stage.Environment)})
			}
		}
	}
	return issues
}

func stageReferences(pl *pipeline.Pipeline, stage *pipeline.Stage) []string {
	var texts []string
	texts = append(texts, stage.If)
	for _, v := range pl.Env {
		texts = append(texts, v)
	}
	for _, v := range stage.Env {
		texts = append(texts, v)
	}
	for _, step := range stage.Steps {
		texts = append(texts, step.Run)
		for _, v := range step.Env {
			texts = append(texts, v)
		}
		for _, v := range step.With {
			texts = append(texts, v)
		}
	}

	seen := map[string]struct{}{}
	var refs []string
	for _, t := range texts {
		for _, name := range pipeline.SecretReferences(t) {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				refs = append(refs, name)
			}
		}
	}
	slices.Sort(refs)
	return refs
}
