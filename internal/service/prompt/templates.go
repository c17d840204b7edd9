package prompt

// Template text uses {name} placeholders; a literal brace must be doubled.

const generateInstruction = `You are a senior {language} engineer working inside an online IDE.
Write complete, idiomatic, runnable {language} programs.
Answer with a single fenced code block followed by at most three short sentences of explanation.
Never invent libraries that are not part of the standard {language} distribution unless the user asks for them.`

const generatePrompt = `Write a {language} program for the following problem.

Problem description:
{problem_description}

Requirements:
- The program must run as-is, without placeholders.
- Read input only if the problem asks for it, otherwise use sample data.
- Print the results the problem asks for.`

// defaultRuntimes describes how each language is executed for output prompts.
func defaultRuntimes() map[string]string {
	return map[string]string{
		"python":     "a CPython 3.12 interpreter",
		"javascript": "a Node.js 20 runtime",
		"typescript": "ts-node on Node.js 20 with strict mode",
		"rust":       "rustc 1.79 in release mode followed by running the binary",
		"go":         "go run with Go 1.22",
		"java":       "javac and java from OpenJDK 21",
		"kotlin":     "kotlinc 2.0 targeting the JVM",
		"scala":      "scala 3 with scala-cli",
		"swift":      "swiftc 5.10 on Linux",
		"ruby":       "a Ruby 3.3 interpreter",
		"dart":       "dart run with Dart 3",
		"perl":       "a Perl 5.38 interpreter",
		"julia":      "Julia 1.10",
		"cpp":        "g++ 13 with -std=c++20 followed by running the binary",
		"c":          "gcc 13 with -std=c17 followed by running the binary",
		"csharp":     "dotnet 8 running a console application",
		"sql":        "SQLite 3 executing every statement in order and printing each result set as a table",
		"mongodb":    "mongosh connected to an empty database, printing the result of every statement",
		"verilog":    "Icarus Verilog (iverilog then vvp) simulating the top-level testbench",
	}
}

const compilerInstruction = `You are a deterministic {language} execution engine.
Given source code, reply with exactly what the program would print, nothing else.
If the code does not compile or raises an error, reply with the error message the toolchain would print.
Do not explain, do not correct the code and do not wrap the answer in a code block.`

const outputPrompt = `Execute the following code as %s and return its output.
The current time is {time}; use it wherever the program reads the clock.

Code:
{code}`

const refactorInstruction = `You are a careful {language} reviewer.
Improve readability, correctness and performance while keeping the observable behaviour the user expects.
Answer with the complete refactored source in a single fenced code block and nothing else.`

const refactorPrompt = `Refactor the following {language} code.
If the recorded output shows an error, fix the cause of the error.

Code:
{code}

Recorded output:
{output}`

const refactorPromptUser = `Refactor the following {language} code so that it satisfies the user's request.
If the recorded output shows an error, fix the cause of the error as well.

User request:
{problem_description}

Code:
{code}

Recorded output:
{output}`

const improveInstruction = `You help users write better prompts for a code generator.
Reply only with a JSON object whose keys are prompt_1, prompt_2, prompt_3 and so on and whose values are non-empty prompt strings.
Do not add commentary, markdown or any other keys.`

const improvePrompt = `Suggest three to five clear, self-contained {language} programming tasks about the topic below.
Each suggestion must state the expected input and output.

Topic: {topic}`

const improveWebPrompt = `Suggest three to five single-page web projects built with plain HTML, CSS and JavaScript about the topic below.
Each suggestion must describe the layout, the styling direction and the interactive behaviour.

Topic: {topic}`

const htmlInstruction = `You are a front-end engineer writing semantic, accessible HTML5.
Return only the markup for the body of a single page, inside one fenced html code block.
Give every element that styling or scripts will need a meaningful id or class. Do not include inline styles or scripts.`

const htmlPrompt = `Create the HTML markup for this project:
{prompt}

The current time is {time}.`

const cssInstruction = `You are a front-end engineer writing modern, responsive CSS.
Return only the stylesheet, inside one fenced css code block. Only target selectors present in the markup.`

const cssPrompt = `Write the stylesheet for this project:
{project_description}

Markup:
{html_content}

The current time is {time}.`

const jsInstruction = `You are a front-end engineer writing modern, dependency-free JavaScript.
Return only the script, inside one fenced js code block. Wait for DOMContentLoaded before touching the page and only use elements present in the markup.`

const jsPrompt = `Write the script for this project:
{project_description}

Markup:
{html_content}

Stylesheet:
{css_content}

The current time is {time}.`

const refactorHTMLPrompt = `Refactor this HTML for semantics, accessibility and readability without changing ids or classes.

HTML:
{html_content}`

const refactorHTMLPromptUser = `Refactor this HTML according to the user's request while keeping ids and classes that other files rely on.

User request:
{problem_description}

HTML:
{html_content}`

const refactorCSSPrompt = `Refactor this stylesheet: remove duplication, fix selectors that do not match the markup and keep the visual result.

HTML:
{html_content}

CSS:
{css_content}`

const refactorCSSPromptUser = `Refactor this stylesheet according to the user's request. Only target selectors present in the markup.

User request:
{problem_description}

HTML:
{html_content}

CSS:
{css_content}`

const refactorJSPrompt = `Refactor this script for readability and robustness without changing its behaviour.

HTML:
{html_content}

CSS:
{css_content}

JavaScript:
{js_content}`

const refactorJSPromptUser = `Refactor this script according to the user's request. Only use elements present in the markup.

User request:
{problem_description}

HTML:
{html_content}

CSS:
{css_content}

JavaScript:
{js_content}`
