// Package preview defines the contracts for generating and hosting
// one-page preview sites.
//
// Generation and deployment are separate steps so the pipeline can count
// them independently and skip deployment when a campaign disables it.
// [Compose] glues a Generator and a Deployer into the one-shot [Builder]
// used by callers that don't need the intermediate content.
//
// Adapters live in sub-packages: preview/gemini generates content with a
// hosted LLM; preview/staticsite renders and serves plain HTML.
package preview

import (
	"context"

	"github.com/isethius/Autowebsites-sub001/lead"
)

// Content is the generated copy for a lead's preview site.
type Content struct {
	Headline     string   `json:"headline"`
	Subheadline  string   `json:"subheadline"`
	About        string   `json:"about"`
	Services     []string `json:"services"`
	CallToAction string   `json:"call_to_action"`
	ColorScheme  string   `json:"color_scheme"`
}

// Generator produces preview content for a lead.
type Generator interface {
	Generate(ctx context.Context, l *lead.Lead) (*Content, error)
}

// Deployer publishes generated content and returns its public URL.
type Deployer interface {
	Deploy(ctx context.Context, l *lead.Lead, c *Content) (string, error)
}

// Builder is the one-shot generate-and-deploy contract.
type Builder interface {
	GenerateAndDeploy(ctx context.Context, l *lead.Lead) (string, error)
}

// Compose returns a Builder that generates content with g and deploys it
// with d. A generation failure short-circuits; the deployer never sees a
// nil Content.
func Compose(g Generator, d Deployer) Builder {
	return &composed{g: g, d: d}
}

type composed struct {
	g Generator
	d Deployer
}

func (c *composed) GenerateAndDeploy(ctx context.Context, l *lead.Lead) (string, error) {
	content, err := c.g.Generate(ctx, l)
	if err != nil {
		return "", err
	}
	return c.d.Deploy(ctx, l, content)
}
