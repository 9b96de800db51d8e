package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain code", "import sys\nprint(1)", "import sys\nprint(1)"},
		{"python fence", "```python\nimport sys\n```", "import sys"},
		{"bare fence", "```\nimport sys\n```", "import sys"},
		{"surrounding whitespace", "\n\n  ```python\nx = 1\n```  \n", "x = 1"},
		{"other tag", "```py3\nx = 1\n```", "x = 1"},
		{"leading fence only", "```python\nx = 1", "x = 1"},
		{"trailing fence only", "x = 1\n```", "x = 1"},
		{"inline fence keeps code", "```x = 1```", "x = 1"},
		{"empty fence", "```", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.input))
		})
	}
}
