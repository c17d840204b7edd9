// Package prompt holds the prompt templates used by the code relay together
// with the helpers that post-process model output.
package prompt

import (
	"context"
	"fmt"
	"sort"
	"time"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// WebBundle is the pseudo-language used when suggesting html/css/js projects.
const WebBundle = "htmlcssjs"

// Vars are substituted into {name} placeholders.
type Vars map[string]any

// Template renders a system instruction and a user message.
type Template struct {
	name string
	tpl  *einoprompt.DefaultChatTemplate
}

func newTemplate(name, system, user string) *Template {
	return &Template{
		name: name,
		tpl: einoprompt.FromMessages(schema.FString,
			schema.SystemMessage(system),
			schema.UserMessage(user),
		),
	}
}

// Render substitutes vars. A placeholder without a value is an error.
func (t *Template) Render(ctx context.Context, vars Vars) ([]*schema.Message, error) {
	msgs, err := t.tpl.Format(ctx, map[string]any(vars))
	if err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", t.name, err)
	}
	return msgs, nil
}

// Catalog is the full set of templates, built once at startup.
type Catalog struct {
	languages map[string]struct{}

	Generate       *Template
	Refactor       *Template
	RefactorGuided *Template
	output         map[string]*Template
	improve        map[string]*Template

	WebHTML *Template
	WebCSS  *Template
	WebJS   *Template

	RefactorHTML       *Template
	RefactorHTMLGuided *Template
	RefactorCSS        *Template
	RefactorCSSGuided  *Template
	RefactorJS         *Template
	RefactorJSGuided   *Template
}

// DefaultLanguages lists the source languages the relay accepts.
func DefaultLanguages() []string {
	return []string{
		"python", "javascript", "rust", "mongodb", "swift", "ruby", "dart",
		"perl", "scala", "julia", "go", "java", "cpp", "csharp", "c", "sql",
		"typescript", "kotlin", "verilog",
	}
}

// NewCatalog builds every template for the given language allow-list.
func NewCatalog(languages []string) *Catalog {
	c := &Catalog{
		languages: make(map[string]struct{}, len(languages)),
		output:    make(map[string]*Template, len(languages)),
		improve:   make(map[string]*Template, len(languages)+1),
	}
	for _, lang := range languages {
		c.languages[lang] = struct{}{}
	}

	c.Generate = newTemplate("generate", generateInstruction, generatePrompt)
	c.Refactor = newTemplate("refactor", refactorInstruction, refactorPrompt)
	c.RefactorGuided = newTemplate("refactor-guided", refactorInstruction, refactorPromptUser)

	runtimes := defaultRuntimes()
	for _, lang := range languages {
		runtime, ok := runtimes[lang]
		if !ok {
			runtime = "the reference toolchain for {language}"
		}
		c.output[lang] = newTemplate("output-"+lang, compilerInstruction, fmt.Sprintf(outputPrompt, runtime))
		c.improve[lang] = newTemplate("improve-"+lang, improveInstruction, improvePrompt)
	}
	c.improve[WebBundle] = newTemplate("improve-"+WebBundle, improveInstruction, improveWebPrompt)

	c.WebHTML = newTemplate("html", htmlInstruction, htmlPrompt)
	c.WebCSS = newTemplate("css", cssInstruction, cssPrompt)
	c.WebJS = newTemplate("js", jsInstruction, jsPrompt)

	c.RefactorHTML = newTemplate("refactor-html", refactorInstruction, refactorHTMLPrompt)
	c.RefactorHTMLGuided = newTemplate("refactor-html-guided", refactorInstruction, refactorHTMLPromptUser)
	c.RefactorCSS = newTemplate("refactor-css", refactorInstruction, refactorCSSPrompt)
	c.RefactorCSSGuided = newTemplate("refactor-css-guided", refactorInstruction, refactorCSSPromptUser)
	c.RefactorJS = newTemplate("refactor-js", refactorInstruction, refactorJSPrompt)
	c.RefactorJSGuided = newTemplate("refactor-js-guided", refactorInstruction, refactorJSPromptUser)
	return c
}

// Supports reports whether lang is on the allow-list.
func (c *Catalog) Supports(lang string) bool {
	_, ok := c.languages[lang]
	return ok
}

// Languages returns the allow-list, sorted.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.languages))
	for lang := range c.languages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Output returns the program-output template for lang.
func (c *Catalog) Output(lang string) (*Template, bool) {
	t, ok := c.output[lang]
	return t, ok
}

// Improve returns the prompt-suggestion template for lang or WebBundle.
func (c *Catalog) Improve(lang string) (*Template, bool) {
	t, ok := c.improve[lang]
	return t, ok
}

// TimeReference formats t the way prompts refer to the current time.
func TimeReference(t time.Time) string {
	return t.UTC().Format("03:04:05 PM on January 02, 2006") + " UTC time zone"
}
