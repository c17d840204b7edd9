package codegen

import (
	"context"
	"strings"

	"github.com/ngocnhiem/online-ide/internal/service/ai"
	"github.com/ngocnhiem/online-ide/internal/service/prompt"
)

// Web artifact types.
const (
	TypeHTML = "html"
	TypeCSS  = "css"
	TypeJS   = "js"
)

// WebGenerateRequest builds one artifact of a single page project. Later
// artifacts are conditioned on the earlier ones.
type WebGenerateRequest struct {
	Type        string
	Prompt      string
	HTMLContent string
	CSSContent  string
}

// WebGenerate streams the requested artifact.
func (s *Service) WebGenerate(ctx context.Context, req WebGenerateRequest, fn func(string) error) error {
	if req.Prompt == "" {
		return invalid("Project description is required")
	}
	now := prompt.TimeReference(s.now())
	switch req.Type {
	case TypeHTML:
		return s.stream(ctx, ai.TierWeb, s.catalog.WebHTML, prompt.Vars{
			"prompt": req.Prompt,
			"time":   now,
		}, fn)
	case TypeCSS:
		return s.stream(ctx, ai.TierWeb, s.catalog.WebCSS, prompt.Vars{
			"html_content":        req.HTMLContent,
			"project_description": req.Prompt,
			"time":                now,
		}, fn)
	case TypeJS:
		return s.stream(ctx, ai.TierWeb, s.catalog.WebJS, prompt.Vars{
			"html_content":        req.HTMLContent,
			"css_content":         req.CSSContent,
			"project_description": req.Prompt,
			"time":                now,
		}, fn)
	default:
		return invalid("Invalid or missing 'type' parameter")
	}
}

// WebRefactorRequest refactors one artifact. CSS needs the markup, JS needs
// markup and stylesheet.
type WebRefactorRequest struct {
	Type               string
	HTML               string
	CSS                string
	JS                 string
	ProblemDescription string
}

// WebRefactor returns the refactored artifact extracted from the model's
// fenced answer. An answer without a fenced block yields the submitted
// artifact unchanged.
func (s *Service) WebRefactor(ctx context.Context, req WebRefactorRequest) (string, error) {
	if req.Type == "" {
		return "", invalid("Type is required.")
	}
	guidance := strings.ToLower(strings.TrimSpace(req.ProblemDescription))
	vars := prompt.Vars{"language": req.Type}
	var plain, guided *prompt.Template
	var submitted string

	switch {
	case req.Type == TypeHTML && req.HTML != "":
		plain, guided = s.catalog.RefactorHTML, s.catalog.RefactorHTMLGuided
		submitted = req.HTML
		vars["html_content"] = req.HTML
	case req.Type == TypeCSS && req.HTML != "":
		plain, guided = s.catalog.RefactorCSS, s.catalog.RefactorCSSGuided
		submitted = req.CSS
		vars["html_content"] = req.HTML
		vars["css_content"] = req.CSS
	case req.Type == TypeJS && req.HTML != "" && req.CSS != "":
		plain, guided = s.catalog.RefactorJS, s.catalog.RefactorJSGuided
		submitted = req.JS
		vars["html_content"] = req.HTML
		vars["css_content"] = req.CSS
		vars["js_content"] = req.JS
	default:
		return "", invalid("Please provide the appropriate content for the requested type.")
	}

	tpl := plain
	if guidance != "" {
		tpl = guided
		vars["problem_description"] = guidance
	}
	out, err := s.complete(ctx, ai.TierWeb, tpl, vars)
	if err != nil {
		return "", err
	}
	code, ok := prompt.ExtractCode(strings.TrimSpace(out))
	if !ok {
		return submitted, nil
	}
	return code, nil
}
