// Package llm defines the completion interface avatars speak through, with a
// local langchaingo backend for running without the async task service.
package llm

import (
	"context"
	"log/slog"

	"github.com/aviary-sim/aviary/internal/models"
)

// Persona is the voice a completion is generated in. Name is only used for
// logging; Personality becomes the system prompt.
type Persona struct {
	Name        string
	Personality string
}

// PersonaFor returns the persona of an avatar.
func PersonaFor(a *models.Avatar) Persona {
	return Persona{Name: a.Name, Personality: a.Personality}
}

// Completer produces a completion for a conversation in a given persona.
// Implementations: the async task client and the local Model.
type Completer interface {
	Complete(ctx context.Context, persona Persona, turns []models.Turn) (string, error)
}

// Run wraps Complete with degrade-to-empty semantics: any failure is logged
// and reported as ok=false so callers skip rather than crash.
func Run(ctx context.Context, c Completer, persona Persona, turns []models.Turn, log *slog.Logger) (string, bool) {
	response, err := c.Complete(ctx, persona, turns)
	if err != nil {
		log.Error("completion failed", "persona", persona.Name, "error", err)
		return "", false
	}
	return response, true
}
