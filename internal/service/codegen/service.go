// Package codegen turns relay requests into rendered prompts and hands them
// to the generation backend.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ngocnhiem/online-ide/internal/service/ai"
	"github.com/ngocnhiem/online-ide/internal/service/prompt"

	"github.com/cloudwego/eino/schema"
)

var (
	// ErrUnsupportedLanguage is returned before any upstream call is made.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrUpstream marks failures of the generation backend.
	ErrUpstream = ai.ErrUpstream
)

// ValidationError carries a message that is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// Generator is the part of ai.Service the relay depends on.
type Generator interface {
	Stream(ctx context.Context, tier ai.Tier, msgs []*schema.Message, fn func(string) error) error
	Complete(ctx context.Context, tier ai.Tier, msgs []*schema.Message) (string, error)
}

// Service implements every relay operation.
type Service struct {
	gen     Generator
	catalog *prompt.Catalog
	now     func() time.Time
}

// NewService wires the generator to a template catalog.
func NewService(gen Generator, catalog *prompt.Catalog) *Service {
	return &Service{gen: gen, catalog: catalog, now: time.Now}
}

// WithClock replaces the clock used for {time} placeholders.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Languages lists the accepted source languages.
func (s *Service) Languages() []string {
	return s.catalog.Languages()
}

type GenerateRequest struct {
	ProblemDescription string
	Language           string
}

type OutputRequest struct {
	Code     string
	Language string
}

type RefactorRequest struct {
	Code               string
	Language           string
	Output             string
	ProblemDescription string
}

func (s *Service) checkLanguage(lang string) error {
	if !s.catalog.Supports(lang) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	return nil
}

func (s *Service) stream(ctx context.Context, tier ai.Tier, tpl *prompt.Template, vars prompt.Vars, fn func(string) error) error {
	msgs, err := tpl.Render(ctx, vars)
	if err != nil {
		return err
	}
	return s.gen.Stream(ctx, tier, msgs, fn)
}

func (s *Service) complete(ctx context.Context, tier ai.Tier, tpl *prompt.Template, vars prompt.Vars) (string, error) {
	msgs, err := tpl.Render(ctx, vars)
	if err != nil {
		return "", err
	}
	return s.gen.Complete(ctx, tier, msgs)
}

// GenerateCode streams a program solving req.ProblemDescription.
func (s *Service) GenerateCode(ctx context.Context, req GenerateRequest, fn func(string) error) error {
	if err := s.checkLanguage(req.Language); err != nil {
		return err
	}
	if strings.TrimSpace(req.ProblemDescription) == "" {
		return invalid("Problem description is required")
	}
	return s.stream(ctx, ai.TierCode, s.catalog.Generate, prompt.Vars{
		"language":            req.Language,
		"problem_description": req.ProblemDescription,
	}, fn)
}

// ExplainOutput streams what req.Code would print when run.
func (s *Service) ExplainOutput(ctx context.Context, req OutputRequest, fn func(string) error) error {
	if req.Code == "" || req.Language == "" {
		return invalid("Missing code or language")
	}
	tpl, ok := s.catalog.Output(req.Language)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.Language)
	}
	return s.stream(ctx, ai.TierCode, tpl, prompt.Vars{
		"language": req.Language,
		"code":     req.Code,
		"time":     prompt.TimeReference(s.now()),
	}, fn)
}

// Refactor streams an improved version of req.Code. A problem description
// selects the guided template.
func (s *Service) Refactor(ctx context.Context, req RefactorRequest, fn func(string) error) error {
	if req.Code == "" || req.Language == "" {
		return invalid("Missing code or language")
	}
	if err := s.checkLanguage(req.Language); err != nil {
		return err
	}
	vars := prompt.Vars{
		"language": req.Language,
		"code":     req.Code,
		"output":   req.Output,
	}
	tpl := s.catalog.Refactor
	if req.ProblemDescription != "" {
		tpl = s.catalog.RefactorGuided
		vars["problem_description"] = req.ProblemDescription
	}
	return s.stream(ctx, ai.TierCode, tpl, vars, fn)
}

// ImproveRequest asks for prompt suggestions about Topic.
type ImproveRequest struct {
	Topic    string
	Language string
}

// ImprovePrompt returns validated suggestions keyed prompt_1, prompt_2, ...
func (s *Service) ImprovePrompt(ctx context.Context, req ImproveRequest) (map[string]string, error) {
	if req.Topic == "" {
		return nil, invalid("Missing topic")
	}
	tpl, ok := s.catalog.Improve(req.Language)
	if req.Language == "" || !ok {
		return nil, invalid("Invalid or missing language")
	}
	out, err := s.complete(ctx, ai.TierCode, tpl, prompt.Vars{
		"language": req.Language,
		"topic":    req.Topic,
	})
	if err != nil {
		return nil, err
	}
	return prompt.ParseSuggestions(out)
}
