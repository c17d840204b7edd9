package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
)

func TestExtractCode(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{name: "language tag", in: "intro ```js\nconsole.log(1)\n``` trailing", want: "console.log(1)\n", wantOK: true},
		{name: "no tag", in: "```\nx = 1\n```", want: "\nx = 1\n", wantOK: true},
		{name: "first block wins", in: "```py\na\n``` and ```py\nb\n```", want: "a\n", wantOK: true},
		{name: "no fence", in: "plain answer", want: "plain answer"},
		{name: "unterminated", in: "```go\nfmt.Println()", want: "```go\nfmt.Println()"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractCode(tc.in)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("ExtractCode(%q) = %q, %v, want %q, %v", tc.in, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestParseSuggestionsAccepts(t *testing.T) {
	cases := map[string]string{
		"json":           `{"prompt_1": "a", "prompt_2": "b"}`,
		"fenced json":    "```json\n{\"prompt_1\": \"a\", \"prompt_2\": \"b\"}\n```",
		"fenced plain":   "```\n{\"prompt_1\": \"a\", \"prompt_2\": \"b\"}\n```",
		"python literal": `{'prompt_1': 'a', 'prompt_2': 'b'}`,
		"trailing comma": `{'prompt_1': 'a', 'prompt_2': 'b',}`,
		"mixed quotes":   `{"prompt_1": 'a', 'prompt_2': "b"}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseSuggestions(in)
			if err != nil {
				t.Fatalf("ParseSuggestions error: %v", err)
			}
			if len(got) != 2 || got["prompt_1"] != "a" || got["prompt_2"] != "b" {
				t.Fatalf("unexpected suggestions %v", got)
			}
		})
	}
}

func TestParseSuggestionsRejects(t *testing.T) {
	cases := map[string]string{
		"empty value and bad key": `{"prompt_1": "", "x": "b"}`,
		"bad key":                 `{"prompt_1": "a", "x": "b"}`,
		"blank value":             `{"prompt_1": "   "}`,
		"array":                   `["prompt_1", "a"]`,
		"string":                  `"prompt_1"`,
		"number value":            `{"prompt_1": 3}`,
		"literal number value":    `{'prompt_1': 3}`,
		"empty object":            `{}`,
		"prose":                   `Here are some prompts you could try`,
		"key suffix":              `{"prompt_1x": "a"}`,
		"block mapping":           "prompt_1: a\nprompt_2: b",
		"bare words":              `{prompt_1: a}`,
		"unterminated literal":    `{'prompt_1': 'a}`,
		"newline in literal":      "{'prompt_1': 'a\nb'}",
		"named escape":            `{'prompt_1': '\N{BULLET}'}`,
		"short hex escape":        `{'prompt_1': '\x4'}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if got, err := ParseSuggestions(in); !errors.Is(err, ErrInvalidSuggestions) {
				t.Fatalf("expected ErrInvalidSuggestions, got %v (%v)", err, got)
			}
		})
	}
}

func TestParseSuggestionsDecodesPythonEscapes(t *testing.T) {
	got, err := ParseSuggestions(`{'prompt_1': 'it\'s fine', 'prompt_2': 'line\nbreak', 'prompt_3': "say \"hi\" \x41\u00e9\101", 'prompt_4': 'keep \d'}`)
	if err != nil {
		t.Fatalf("ParseSuggestions error: %v", err)
	}
	want := map[string]string{
		"prompt_1": "it's fine",
		"prompt_2": "line\nbreak",
		"prompt_3": `say "hi" AéA`,
		"prompt_4": `keep \d`,
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("%s = %q, want %q", key, got[key], value)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected suggestions %v", got)
	}
}

func TestCatalogRendersTemplates(t *testing.T) {
	c := NewCatalog(DefaultLanguages())
	ctx := context.Background()

	msgs, err := c.Generate.Render(ctx, Vars{"language": "go", "problem_description": "sum {a} and {b}"})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != schema.System || msgs[1].Role != schema.User {
		t.Fatalf("unexpected messages %#v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "senior go engineer") {
		t.Fatalf("system instruction not parametrised: %s", msgs[0].Content)
	}
	if !strings.Contains(msgs[1].Content, "sum {a} and {b}") {
		t.Fatalf("braces in values must pass through untouched: %s", msgs[1].Content)
	}

	if _, err := c.Generate.Render(ctx, Vars{"language": "go"}); err == nil {
		t.Fatalf("expected error for missing placeholder value")
	}

	for _, lang := range DefaultLanguages() {
		tpl, ok := c.Output(lang)
		if !ok {
			t.Fatalf("missing output template for %s", lang)
		}
		if _, err := tpl.Render(ctx, Vars{"language": lang, "code": "x", "time": "now"}); err != nil {
			t.Fatalf("output template %s: %v", lang, err)
		}
		if _, ok := c.Improve(lang); !ok {
			t.Fatalf("missing improve template for %s", lang)
		}
	}
	if _, ok := c.Improve(WebBundle); !ok {
		t.Fatalf("missing improve template for %s", WebBundle)
	}
	if c.Supports("cobol") || !c.Supports("verilog") {
		t.Fatalf("unexpected allow-list behaviour")
	}
	if got := len(c.Languages()); got != 19 {
		t.Fatalf("expected 19 languages, got %d", got)
	}
}

func TestTimeReference(t *testing.T) {
	at := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.FixedZone("X", 3600))
	if got, want := TimeReference(at), "01:07:09 PM on March 05, 2024 UTC time zone"; got != want {
		t.Fatalf("TimeReference = %q, want %q", got, want)
	}
}
