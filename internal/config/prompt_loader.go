package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PromptConfig overrides the built-in prompt templates. Each template may be
// given inline or as a file path, but not both. The system template receives
// the schema description through its single %s; the user template receives
// the resume text through its single %s.
type PromptConfig struct {
	System     string `mapstructure:"system"`
	SystemFile string `mapstructure:"systemFile"`
	User       string `mapstructure:"user"`
	UserFile   string `mapstructure:"userFile"`
}

// loadPromptsFromFiles replaces file references with the file contents
func (c *Config) loadPromptsFromFiles() error {
	prompts := &c.AI.Prompts

	if prompts.SystemFile != "" {
		if prompts.System != "" {
			return fmt.Errorf("cannot specify both ai.prompts.system and ai.prompts.systemFile")
		}
		content, err := loadPromptFromFile(prompts.SystemFile, "system")
		if err != nil {
			return err
		}
		prompts.System = content
	}

	if prompts.UserFile != "" {
		if prompts.User != "" {
			return fmt.Errorf("cannot specify both ai.prompts.user and ai.prompts.userFile")
		}
		content, err := loadPromptFromFile(prompts.UserFile, "user")
		if err != nil {
			return err
		}
		prompts.User = content
	}

	if err := validatePromptTemplate("system", prompts.System); err != nil {
		return err
	}
	return validatePromptTemplate("user", prompts.User)
}

// loadPromptFromFile loads a prompt from a file, rejecting empty content
func loadPromptFromFile(filePath, promptType string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s prompt file '%s': %w", promptType, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s prompt file not found: %s", promptType, absPath)
		}
		return "", fmt.Errorf("failed to read %s prompt file '%s': %w", promptType, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s prompt file '%s' is empty", promptType, absPath)
	}

	log.Printf("[CONFIG] Loaded %s prompt from file: %s (%d characters)", promptType, absPath, len(trimmed))
	return trimmed, nil
}

func validatePromptTemplate(promptType, template string) error {
	if template == "" {
		return nil
	}
	if n := strings.Count(template, "%s"); n != 1 {
		return fmt.Errorf("%s prompt template must contain exactly one %%s placeholder, found %d", promptType, n)
	}
	return nil
}
