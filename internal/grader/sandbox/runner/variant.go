package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"autograder/internal/grader/sandbox/engine"
	"autograder/internal/grader/sandbox/profile"
	"autograder/internal/grader/sandbox/spec"
	appErr "autograder/pkg/errors"
	"autograder/pkg/utils/logger"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

// variant is the per-kind build strategy.
type variant interface {
	build(ctx context.Context, eng engine.Engine, req BuildRequest, vars templateVars) error
}

func variantFor(lang profile.LanguageSpec) variant {
	if lang.Compiled() {
		return compiledVariant{}
	}
	return interpretedVariant{}
}

type interpretedVariant struct{}

func (interpretedVariant) build(ctx context.Context, eng engine.Engine, req BuildRequest, vars templateVars) error {
	return nil
}

type compiledVariant struct{}

func (compiledVariant) build(ctx context.Context, eng engine.Engine, req BuildRequest, vars templateVars) error {
	lang := req.Language
	cmd, err := buildCommand(lang.CompileCmdTpl, vars)
	if err != nil {
		return err
	}
	outcome, err := eng.Run(ctx, spec.RunSpec{
		SubmissionID: req.SubmissionID,
		TaskID:       "compile",
		WorkDir:      req.Root,
		Cmd:          cmd,
		Env:          lang.Env,
		Timeout:      req.Timeout,
	})
	if err != nil {
		return appErr.Wrapf(err, appErr.BuildFailed, "%s build aborted: %v", displayName(lang), err)
	}
	switch {
	case outcome.FailedToStart:
		return appErr.Newf(appErr.BuildFailed, "%s compiler failed to start: %s", displayName(lang), outcome.StartError)
	case outcome.TimedOut:
		return appErr.Newf(appErr.BuildFailed, "%s compilation timeout after %s", displayName(lang), req.Timeout)
	case outcome.ExitCode != 0:
		logger.Info(ctx, "compilation failed",
			zap.String("language", lang.ID),
			zap.Int("exit_code", outcome.ExitCode),
		)
		return appErr.Newf(appErr.CompilationError, "%s compilation failed: %s", displayName(lang), outcome.Stderr).
			WithDetail("exit_code", outcome.ExitCode)
	}
	return nil
}

// templateVars are the absolute paths substituted into command templates.
type templateVars struct {
	Src  string
	Bin  string
	Dir  string
	Main string
}

func newTemplateVars(root string, lang profile.LanguageSpec) (templateVars, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return templateVars{}, fmt.Errorf("resolve submission root: %w", err)
	}
	bin := lang.BinaryFile
	if bin == "" {
		bin = strings.TrimSuffix(lang.EntryFile, filepath.Ext(lang.EntryFile))
	}
	return templateVars{
		Src:  filepath.Join(absRoot, lang.EntryFile),
		Bin:  filepath.Join(absRoot, bin),
		Dir:  absRoot,
		Main: strings.TrimSuffix(lang.EntryFile, filepath.Ext(lang.EntryFile)),
	}, nil
}

func buildCommand(tpl string, vars templateVars) ([]string, error) {
	if strings.TrimSpace(tpl) == "" {
		return nil, appErr.ValidationError("command_template", "required")
	}
	replacer := strings.NewReplacer(
		"{src}", vars.Src,
		"{bin}", vars.Bin,
		"{dir}", vars.Dir,
		"{main}", vars.Main,
	)
	cmd, err := shlex.Split(replacer.Replace(tpl))
	if err != nil {
		return nil, appErr.ValidationError("command_template", "invalid")
	}
	if len(cmd) == 0 {
		return nil, appErr.ValidationError("command_template", "empty")
	}
	return cmd, nil
}

func displayName(lang profile.LanguageSpec) string {
	if lang.Name != "" {
		return lang.Name
	}
	return lang.ID
}
