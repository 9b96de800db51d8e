package llm

import (
	"fmt"
)

// Prompt holds the fixed system instruction and the user message template.
// User is a format string receiving the filename and then the source text.
type Prompt struct {
	System string
	User   string
}

// DefaultPrompt converts C++ to Python with stdio based I/O
var DefaultPrompt = Prompt{
	System: "You are an expert programmer who converts C++ code to Python. " +
		"Always provide clean, functional Python code that maintains the original logic.",
	User: `Convert the following C++ code to equivalent Python code.
Maintain the same functionality and logic. Use appropriate Python libraries when needed.
IMPORTANT: Convert all file I/O operations to stdio (stdin/stdout) operations.
Replace file reading with sys.stdin, file writing with sys.stdout.
Use sys.stdin.read() for reading all input, sys.stdout.write() for writing strings.
Import sys at the beginning. Replace cin/cout with sys.stdin/sys.stdout operations.
For multiple inputs, use sys.stdin.read().split() and parse as needed.
Add comments explaining the conversion where necessary.

C++ filename: %s

C++ Code:
` + "```cpp\n%s\n```" + `

Please provide only the Python code without any additional explanation or markdown formatting.`,
}

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 4000
)

// Message is one chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat completions call
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// ChatResponse is the subset of the completions response that is used
type ChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// RequestBuilder builds chat requests for source files
type RequestBuilder struct {
	Model  string
	Prompt Prompt
}

// NewRequestBuilder creates a builder; an empty prompt selects DefaultPrompt
func NewRequestBuilder(model string, prompt Prompt) *RequestBuilder {
	if prompt.System == "" && prompt.User == "" {
		prompt = DefaultPrompt
	}

	return &RequestBuilder{Model: model, Prompt: prompt}
}

// Build returns the two message exchange for filename and its source text
func (b *RequestBuilder) Build(filename, source string) ChatRequest {
	return ChatRequest{
		Model: b.Model,
		Messages: []Message{
			{Role: "system", Content: b.Prompt.System},
			{Role: "user", Content: fmt.Sprintf(b.Prompt.User, filename, source)},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
}
