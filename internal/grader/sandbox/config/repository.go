package config

import (
	"context"

	"autograder/internal/grader/sandbox/profile"
)

// Repository resolves language selectors.
type Repository interface {
	GetLanguageSpec(ctx context.Context, id string) (profile.LanguageSpec, error)
}
