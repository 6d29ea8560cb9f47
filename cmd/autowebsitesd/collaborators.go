package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/isethius/Autowebsites-sub001/discovery/webdir"
	"github.com/isethius/Autowebsites-sub001/engine"
	"github.com/isethius/Autowebsites-sub001/outreach"
	"github.com/isethius/Autowebsites-sub001/outreach/smtp"
	"github.com/isethius/Autowebsites-sub001/preview/gemini"
	"github.com/isethius/Autowebsites-sub001/preview/staticsite"
)

// collaboratorOptions wires the pipeline's external services from the
// environment. Each phase is optional: a missing variable leaves that
// collaborator nil and the pipeline skips the phase, which is how a
// discovery-only or no-email deployment is configured.
func collaboratorOptions(ctx context.Context, logger *slog.Logger) ([]engine.Option, error) {
	var opts []engine.Option

	if baseURL := os.Getenv("DIRECTORY_URL"); baseURL != "" {
		src, err := webdir.New(baseURL, webdir.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("directory source: %w", err)
		}
		opts = append(opts, engine.WithSource(src))
	} else {
		logger.Warn("DIRECTORY_URL not set; discovery disabled, cycles will find no leads")
	}

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		gen, err := gemini.New(ctx, apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			return nil, fmt.Errorf("gemini generator: %w", err)
		}
		opts = append(opts, engine.WithGenerator(gen))
	} else {
		logger.Info("GEMINI_API_KEY not set; preview generation disabled")
	}

	if root := os.Getenv("PREVIEW_ROOT"); root != "" {
		baseURL := os.Getenv("PREVIEW_BASE_URL")
		if baseURL == "" {
			return nil, fmt.Errorf("PREVIEW_ROOT requires PREVIEW_BASE_URL")
		}
		dep, err := staticsite.New(root, baseURL)
		if err != nil {
			return nil, fmt.Errorf("static site deployer: %w", err)
		}
		opts = append(opts, engine.WithDeployer(dep))
	} else {
		logger.Info("PREVIEW_ROOT not set; preview deployment disabled")
	}

	if addr := os.Getenv("SMTP_ADDR"); addr != "" {
		from := os.Getenv("SMTP_FROM")
		if from == "" {
			return nil, fmt.Errorf("SMTP_ADDR requires SMTP_FROM")
		}
		var smtpOpts []smtp.Option
		if user := os.Getenv("SMTP_USERNAME"); user != "" {
			smtpOpts = append(smtpOpts, smtp.WithPlainAuth(user, os.Getenv("SMTP_PASSWORD")))
		}
		snd, err := smtp.New(addr, from, smtpOpts...)
		if err != nil {
			return nil, fmt.Errorf("smtp sender: %w", err)
		}
		opts = append(opts, engine.WithSender(snd))
	} else {
		logger.Info("SMTP_ADDR not set; email sending disabled")
	}

	var composerOpts []outreach.ComposerOption
	if name := os.Getenv("SENDER_NAME"); name != "" {
		composerOpts = append(composerOpts, outreach.WithSenderName(name))
	}
	comp, err := outreach.NewTemplateComposer(composerOpts...)
	if err != nil {
		return nil, fmt.Errorf("composer: %w", err)
	}
	opts = append(opts, engine.WithComposer(comp))

	return opts, nil
}
