package preview_test

import (
	"context"
	"errors"
	"testing"

	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/preview"
)

type stubGenerator struct {
	content *preview.Content
	err     error
}

func (g *stubGenerator) Generate(_ context.Context, _ *lead.Lead) (*preview.Content, error) {
	return g.content, g.err
}

type stubDeployer struct {
	url      string
	err      error
	received *preview.Content
}

func (d *stubDeployer) Deploy(_ context.Context, _ *lead.Lead, c *preview.Content) (string, error) {
	d.received = c
	return d.url, d.err
}

func TestCompose_GeneratesThenDeploys(t *testing.T) {
	content := &preview.Content{Headline: "Plumbing done right"}
	gen := &stubGenerator{content: content}
	dep := &stubDeployer{url: "https://preview.example.com/p/abc"}

	b := preview.Compose(gen, dep)
	l := lead.New("Hill Country Plumbing", "plumbing", "austin-tx")

	url, err := b.GenerateAndDeploy(context.Background(), l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://preview.example.com/p/abc" {
		t.Errorf("url = %q, want deployer url", url)
	}
	if dep.received != content {
		t.Error("deployer did not receive the generated content")
	}
}

func TestCompose_GenerationFailureShortCircuits(t *testing.T) {
	genErr := errors.New("model overloaded")
	gen := &stubGenerator{err: genErr}
	dep := &stubDeployer{url: "https://preview.example.com/p/abc"}

	b := preview.Compose(gen, dep)
	l := lead.New("Hill Country Plumbing", "plumbing", "austin-tx")

	_, err := b.GenerateAndDeploy(context.Background(), l)
	if !errors.Is(err, genErr) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if dep.received != nil {
		t.Error("deployer called despite generation failure")
	}
}

func TestCompose_DeployFailurePropagates(t *testing.T) {
	depErr := errors.New("disk full")
	gen := &stubGenerator{content: &preview.Content{Headline: "x"}}
	dep := &stubDeployer{err: depErr}

	b := preview.Compose(gen, dep)
	l := lead.New("Hill Country Plumbing", "plumbing", "austin-tx")

	_, err := b.GenerateAndDeploy(context.Background(), l)
	if !errors.Is(err, depErr) {
		t.Fatalf("expected deploy error, got %v", err)
	}
}
