package config

import (
	"context"
	"sort"

	"autograder/internal/grader/sandbox/profile"
	appErr "autograder/pkg/errors"
)

// LocalRepository serves language specs from memory.
type LocalRepository struct {
	languages map[string]profile.LanguageSpec
}

// NewLocalRepository creates a repository from the built-in table with
// overrides applied by id. Overrides may also add new languages.
func NewLocalRepository(overrides []profile.LanguageSpec) *LocalRepository {
	langMap := make(map[string]profile.LanguageSpec)
	for _, lang := range profile.DefaultLanguages() {
		langMap[lang.ID] = lang
	}
	for _, lang := range overrides {
		if lang.ID == "" {
			continue
		}
		if lang.Kind == "" {
			lang.Kind = profile.KindInterpreted
			if lang.CompileCmdTpl != "" {
				lang.Kind = profile.KindCompiled
			}
		}
		langMap[lang.ID] = lang
	}
	return &LocalRepository{languages: langMap}
}

// GetLanguageSpec returns a language spec.
func (r *LocalRepository) GetLanguageSpec(ctx context.Context, id string) (profile.LanguageSpec, error) {
	if id == "" {
		return profile.LanguageSpec{}, appErr.ValidationError("language", "required")
	}
	lang, ok := r.languages[id]
	if !ok {
		return profile.LanguageSpec{}, appErr.New(appErr.LanguageNotSupported).
			WithMessagef("language %q is not supported", id).
			WithDetail("language", id)
	}
	return lang, nil
}

// IDs lists the supported selectors in stable order.
func (r *LocalRepository) IDs() []string {
	ids := make([]string, 0, len(r.languages))
	for id := range r.languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
