package convert

import (
	"github.com/Norgate-AV/llmconv/internal/config"
	"github.com/Norgate-AV/llmconv/internal/llm"
)

// Profile describes one source/target language pair
type Profile struct {
	// SourceExtensions is the discovery allow-list
	SourceExtensions []string

	// TargetExtension replaces the source extension on artifacts
	TargetExtension string

	// CommentPrefix starts each provenance header line
	CommentPrefix string

	Prompt llm.Prompt
}

// CppToPython is the default profile
var CppToPython = Profile{
	SourceExtensions: config.DefaultSourceExtensions,
	TargetExtension:  ".py",
	CommentPrefix:    "#",
	Prompt:           llm.DefaultPrompt,
}

// WithExtensions returns a copy of p using exts for discovery
func (p Profile) WithExtensions(exts []string) Profile {
	if len(exts) > 0 {
		p.SourceExtensions = exts
	}

	return p
}
