package executor

import (
	"fmt"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
)

// Output keys with typed meaning
const (
	OutputImageTag     = "image_tag"
	OutputImageDigest  = "image_digest"
	OutputReportStatus = "report_status"
)

// Artifact is the image a stage produced
type Artifact struct {
	ImageTag string `json:"image_tag,omitempty"`
	Digest   string `json:"digest,omitempty"`
}

// Reference returns name@digest when both are known, else the tag
func (a *Artifact) Reference() string {
	if a.Digest == "" {
		return a.ImageTag
	}
	named, err := reference.ParseNormalizedNamed(a.ImageTag)
	if err != nil {
		return a.ImageTag
	}
	canonical, err := reference.WithDigest(reference.TrimNamed(named), digest.Digest(a.Digest))
	if err != nil {
		return a.ImageTag
	}
	return canonical.String()
}

// Report is a test or scan summary a stage produced
type Report struct {
	Status string `json:"status"`
}

// typedResults extracts Artifact and Report from stage outputs
func typedResults(outputs map[string]string) (*Artifact, *Report, error) {
	var artifact *Artifact
	tag, dgst := outputs[OutputImageTag], outputs[OutputImageDigest]
	if tag != "" || dgst != "" {
		artifact = &Artifact{ImageTag: tag, Digest: dgst}
		if tag != "" {
			if _, err := reference.ParseNormalizedNamed(tag); err != nil {
				return nil, nil, fmt.Errorf("invalid %s %q: %w", OutputImageTag, tag, err)
			}
		}
		if dgst != "" {
			if _, err := digest.Parse(dgst); err != nil {
				return nil, nil, fmt.Errorf("invalid %s %q: %w", OutputImageDigest, dgst, err)
			}
		}
	}

	var report *Report
	if s := outputs[OutputReportStatus]; s != "" {
		report = &Report{Status: s}
	}
	return artifact, report, nil
}
