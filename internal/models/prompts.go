package models

// PromptTemplate is one prompt pair sent to the generation service.
// The user template may reference {{details}} and {{cultural_context}}.
type PromptTemplate struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// PromptsConfig holds the prompt templates for both annotation calls.
// The target output language is part of the prompt text itself, not of
// the calling code.
type PromptsConfig struct {
	Interpret PromptTemplate `yaml:"interpret"`
	Classify  PromptTemplate `yaml:"classify"`
}
