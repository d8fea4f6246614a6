package generator

import (
	"strings"
	"testing"

	"corpusqa/config"
)

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator(config.GenerateConfig{
		Model:     "gpt-4o-mini",
		APIKeyEnv: "CORPUSQA_NO_SUCH_KEY_VAR",
	})
	if err == nil {
		t.Fatal("expected error when API key env is unset")
	}
}

func TestBuildUserPromptIncludesContext(t *testing.T) {
	prompt := buildUserPrompt("how many beds are free?", []string{
		"Emergency Ward: 50 beds, 10 occupied.",
		"ICU: 30 beds, 25 occupied.",
	})

	if !strings.Contains(prompt, "how many beds are free?") {
		t.Error("prompt missing query")
	}
	if !strings.Contains(prompt, "Emergency Ward: 50 beds, 10 occupied.") {
		t.Error("prompt missing first context chunk")
	}
	if !strings.Contains(prompt, "Context:") {
		t.Error("prompt missing context section")
	}
}

func TestBuildUserPromptWithoutContext(t *testing.T) {
	prompt := buildUserPrompt("hello", nil)

	if strings.Contains(prompt, "Context:") {
		t.Error("empty context must not produce a context section")
	}
	if !strings.Contains(prompt, "hello") {
		t.Error("prompt missing query")
	}
}
