package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFile is one configured prompt file
type promptFile struct {
	Operation string
	Kind      string // "system" or "task"
	Path      string
}

// promptFiles lists every configured prompt file
func (c *Config) promptFiles() []promptFile {
	var files []promptFile
	ops := []struct {
		name string
		cfg  PromptConfig
	}{
		{OperationQuestions, c.AI.Questions.Prompts},
		{OperationChat, c.AI.Chat.Prompts},
		{OperationAnalysis, c.AI.Analysis.Prompts},
	}
	for _, op := range ops {
		if op.cfg.SystemFile != "" {
			files = append(files, promptFile{Operation: op.name, Kind: "system", Path: op.cfg.SystemFile})
		}
		if op.cfg.TaskFile != "" {
			files = append(files, promptFile{Operation: op.name, Kind: "task", Path: op.cfg.TaskFile})
		}
	}
	return files
}

// LoadPromptsFromFiles loads custom prompts from external files. The loaded
// set replaces the previous one only if every file could be read.
func (c *Config) LoadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	next := map[string]LoadedPrompts{}
	for _, pf := range c.promptFiles() {
		content, err := c.loadPromptFromFile(pf.Path, pf.Kind, pf.Operation)
		if err != nil {
			return err
		}
		prompts := next[pf.Operation]
		if pf.Kind == "system" {
			prompts.System = content
		} else {
			prompts.Task = content
		}
		next[pf.Operation] = prompts
	}

	loadedPrompts.replace(next)
	logPromptLoadingSummary(len(c.promptFiles()))
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func (c *Config) loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, pf := range c.promptFiles() {
		absPath, err := filepath.Abs(pf.Path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", pf.Operation, pf.Kind, pf.Path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", pf.Operation, pf.Kind, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}

func logPromptLoadingSummary(promptCount int) {
	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")
	if promptCount == 0 {
		log.Println("[CONFIG] No custom prompt files configured - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", promptCount)
	}
	log.Println("[CONFIG] ==========================================")
}
