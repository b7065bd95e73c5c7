package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/agent-api/core"
	"github.com/agent-api/core/agent"
	"github.com/agent-api/core/agent/bootstrap"
	"github.com/agent-api/ollama"
	"github.com/go-logr/logr"
)

// NarrativeFunc produces a short prose assessment from a harmony summary
// prompt. Implementations may block on a model call; callers bound them with
// a context deadline.
type NarrativeFunc func(ctx context.Context, prompt string) (string, error)

const narrativeSystemPrompt = "You are a brand compliance reviewer. Given color " +
	"palettes and alignment scores for an ad video, write a short plain-prose " +
	"assessment of how well the video matches the brand's visual identity. " +
	"Two or three sentences, no lists."

// NewNarrativeAgent initializes an ollama-backed agent and returns a
// NarrativeFunc over it. The numeric pipeline never depends on this; callers
// treat a nil or failing narrative as a warning.
func NewNarrativeAgent(ctx context.Context, logger *slog.Logger, ollamaURL, modelID string) (NarrativeFunc, error) {
	base, port, err := splitHostPort(ollamaURL)
	if err != nil {
		return nil, err
	}

	lgr := logr.FromSlogHandler(logger.Handler())

	opts := &ollama.ProviderOpts{
		Logger:  &lgr,
		BaseURL: base,
		Port:    port,
	}
	provider := ollama.NewProvider(opts)

	model := &core.Model{
		ID: modelID,
	}
	provider.UseModel(ctx, model)

	a, err := agent.NewAgent(
		bootstrap.WithProvider(provider),
		bootstrap.WithLogger(&lgr),
		bootstrap.WithSystemPrompt(narrativeSystemPrompt),
	)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, prompt string) (string, error) {
		response, err := a.Run(ctx, agent.WithInput(prompt))
		if err != nil {
			return "", err
		}
		if len(response.Messages) == 0 {
			return "", fmt.Errorf("no response messages from model %s", modelID)
		}
		return response.Messages[len(response.Messages)-1].Content, nil
	}, nil
}

// splitHostPort breaks an ollama URL like http://localhost:11434 into the
// scheme+host base and the numeric port the provider wants.
func splitHostPort(raw string) (string, int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("parse ollama url %q: %w", raw, err)
	}
	port := 11434
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	return u.Scheme + "://" + u.Hostname(), port, nil
}
