package codegen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ngocnhiem/online-ide/internal/service/ai"
	"github.com/ngocnhiem/online-ide/internal/service/prompt"

	"github.com/cloudwego/eino/schema"
)

type fakeGenerator struct {
	chunks   []string
	reply    string
	err      error
	calls    int
	lastTier ai.Tier
	lastMsgs []*schema.Message
}

func (f *fakeGenerator) Stream(_ context.Context, tier ai.Tier, msgs []*schema.Message, fn func(string) error) error {
	f.calls++
	f.lastTier, f.lastMsgs = tier, msgs
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGenerator) Complete(_ context.Context, tier ai.Tier, msgs []*schema.Message) (string, error) {
	f.calls++
	f.lastTier, f.lastMsgs = tier, msgs
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) userPrompt() string {
	for _, m := range f.lastMsgs {
		if m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}

func (f *fakeGenerator) systemPrompt() string {
	for _, m := range f.lastMsgs {
		if m.Role == schema.System {
			return m.Content
		}
	}
	return ""
}

var fixedNow = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

func newTestService(gen *fakeGenerator) *Service {
	return NewService(gen, prompt.NewCatalog(prompt.DefaultLanguages())).WithClock(func() time.Time { return fixedNow })
}

func collect(out *[]string) func(string) error {
	return func(s string) error {
		*out = append(*out, s)
		return nil
	}
}

func TestUnsupportedLanguageNeverCallsUpstream(t *testing.T) {
	for _, lang := range []string{"cobol", "", "Python", "brainfuck", "html"} {
		gen := &fakeGenerator{chunks: []string{"x"}}
		svc := newTestService(gen)
		ctx := context.Background()
		var out []string

		errs := []error{
			svc.GenerateCode(ctx, GenerateRequest{ProblemDescription: "p", Language: lang}, collect(&out)),
			svc.Refactor(ctx, RefactorRequest{Code: "c", Language: lang}, collect(&out)),
		}
		if lang != "" {
			errs = append(errs, svc.ExplainOutput(ctx, OutputRequest{Code: "c", Language: lang}, collect(&out)))
		}
		for i, err := range errs {
			if !errors.Is(err, ErrUnsupportedLanguage) && !(lang == "" && isValidation(err)) {
				t.Fatalf("lang %q call %d: expected unsupported language, got %v", lang, i, err)
			}
		}
		if gen.calls != 0 || len(out) != 0 {
			t.Fatalf("lang %q: upstream contacted %d times", lang, gen.calls)
		}
	}
}

func isValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func TestGenerateCodeStreams(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"pri", "nt(1)"}}
	svc := newTestService(gen)
	var out []string
	if err := svc.GenerateCode(context.Background(), GenerateRequest{ProblemDescription: "print one", Language: "python"}, collect(&out)); err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	if strings.Join(out, "") != "print(1)" {
		t.Fatalf("unexpected stream %v", out)
	}
	if gen.lastTier != ai.TierCode {
		t.Fatalf("expected code tier, got %s", gen.lastTier)
	}
	if !strings.Contains(gen.userPrompt(), "print one") || !strings.Contains(gen.systemPrompt(), "python") {
		t.Fatalf("prompt not rendered: %v", gen.lastMsgs)
	}

	if err := svc.GenerateCode(context.Background(), GenerateRequest{Language: "python"}, collect(&out)); !isValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExplainOutputUsesClock(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"1\n"}}
	svc := newTestService(gen)
	var out []string
	if err := svc.ExplainOutput(context.Background(), OutputRequest{Code: "print(1)", Language: "python"}, collect(&out)); err != nil {
		t.Fatalf("ExplainOutput error: %v", err)
	}
	if !strings.Contains(gen.userPrompt(), "03:04:05 PM on January 02, 2024 UTC time zone") {
		t.Fatalf("time reference missing: %s", gen.userPrompt())
	}
	if err := svc.ExplainOutput(context.Background(), OutputRequest{Language: "python"}, collect(&out)); !isValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRefactorSelectsTemplate(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"ok"}}
	svc := newTestService(gen)
	var out []string

	if err := svc.Refactor(context.Background(), RefactorRequest{Code: "x=1", Language: "go", Output: "boom"}, collect(&out)); err != nil {
		t.Fatalf("Refactor error: %v", err)
	}
	if strings.Contains(gen.userPrompt(), "User request") {
		t.Fatalf("unguided refactor used guided template")
	}
	if err := svc.Refactor(context.Background(), RefactorRequest{Code: "x=1", Language: "go", ProblemDescription: "use generics"}, collect(&out)); err != nil {
		t.Fatalf("Refactor error: %v", err)
	}
	if !strings.Contains(gen.userPrompt(), "use generics") {
		t.Fatalf("guided refactor missing request: %s", gen.userPrompt())
	}
}

func TestUpstreamErrorsPropagate(t *testing.T) {
	boom := errors.Join(ErrUpstream, errors.New("quota"))
	svc := newTestService(&fakeGenerator{err: boom})
	var out []string
	if err := svc.GenerateCode(context.Background(), GenerateRequest{ProblemDescription: "p", Language: "go"}, collect(&out)); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if _, err := svc.ImprovePrompt(context.Background(), ImproveRequest{Topic: "t", Language: "go"}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestImprovePrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"prompt_1\": \"a\", \"prompt_2\": \"b\"}\n```"}
	svc := newTestService(gen)
	got, err := svc.ImprovePrompt(context.Background(), ImproveRequest{Topic: "sorting", Language: "go"})
	if err != nil {
		t.Fatalf("ImprovePrompt error: %v", err)
	}
	if got["prompt_1"] != "a" || got["prompt_2"] != "b" {
		t.Fatalf("unexpected prompts %v", got)
	}
	if !strings.Contains(gen.userPrompt(), "sorting") {
		t.Fatalf("topic missing from prompt")
	}

	if _, err := svc.ImprovePrompt(context.Background(), ImproveRequest{Topic: "games", Language: prompt.WebBundle}); err != nil {
		t.Fatalf("web bundle suggestions: %v", err)
	}

	cases := []struct {
		req  ImproveRequest
		want string
	}{
		{ImproveRequest{Language: "go"}, "Missing topic"},
		{ImproveRequest{Topic: "t"}, "Invalid or missing language"},
		{ImproveRequest{Topic: "t", Language: "cobol"}, "Invalid or missing language"},
	}
	for _, tc := range cases {
		_, err := svc.ImprovePrompt(context.Background(), tc.req)
		var v *ValidationError
		if !errors.As(err, &v) || v.Message != tc.want {
			t.Fatalf("%+v: expected %q, got %v", tc.req, tc.want, err)
		}
	}

	gen.reply = `{"prompt_1": "", "x": "b"}`
	if _, err := svc.ImprovePrompt(context.Background(), ImproveRequest{Topic: "t", Language: "go"}); !errors.Is(err, prompt.ErrInvalidSuggestions) {
		t.Fatalf("expected ErrInvalidSuggestions, got %v", err)
	}
}
