package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompt(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write prompt file: %v", err)
	}
}

func TestLoadPromptsFromFiles(t *testing.T) {
	tempDir := t.TempDir()

	systemPromptContent := "You are a staff engineer interviewing backend candidates"
	taskPromptContent := "Write exactly five questions"

	systemPromptFile := filepath.Join(tempDir, "questions.system.md")
	taskPromptFile := filepath.Join(tempDir, "questions.task.md")
	writePrompt(t, systemPromptFile, "  "+systemPromptContent+"\n")
	writePrompt(t, taskPromptFile, taskPromptContent)

	config := &Config{
		AI: AIConfig{
			Questions: OperationAIConfig{
				Prompts: PromptConfig{
					SystemFile: systemPromptFile,
					TaskFile:   taskPromptFile,
				},
			},
		},
	}
	t.Cleanup(func() { loadedPrompts.replace(nil) })

	require.NoError(t, config.LoadPromptsFromFiles())

	loaded := GetPromptsForOperation(OperationQuestions)
	assert.Equal(t, systemPromptContent, loaded.System, "content is trimmed")
	assert.Equal(t, taskPromptContent, loaded.Task)
	assert.Empty(t, GetPromptsForOperation(OperationAnalysis).System)

	assert.Equal(t, systemPromptFile, config.AI.Questions.Prompts.SystemFile, "file path is preserved")
}

func TestLoadPromptsFromFilesKeepsPreviousOnFailure(t *testing.T) {
	tempDir := t.TempDir()
	taskFile := filepath.Join(tempDir, "task.md")
	writePrompt(t, taskFile, "first version")

	config := &Config{AI: AIConfig{Analysis: OperationAIConfig{Prompts: PromptConfig{TaskFile: taskFile}}}}
	t.Cleanup(func() { loadedPrompts.replace(nil) })
	require.NoError(t, config.LoadPromptsFromFiles())

	writePrompt(t, taskFile, "   ")
	assert.Error(t, config.LoadPromptsFromFiles())
	assert.Equal(t, "first version", GetPromptsForOperation(OperationAnalysis).Task)
}

func TestValidatePromptFiles(t *testing.T) {
	tempDir := t.TempDir()
	validFile := filepath.Join(tempDir, "valid.md")
	writePrompt(t, validFile, "Valid content")

	config := &Config{
		AI: AIConfig{
			Analysis: OperationAIConfig{Prompts: PromptConfig{SystemFile: validFile}},
		},
	}
	assert.NoError(t, config.validatePromptFiles())

	config.AI.Analysis.Prompts.SystemFile = filepath.Join(tempDir, "nonexistent.md")
	err := config.validatePromptFiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis system prompt file not found")
}

func TestLoadPromptFromFile(t *testing.T) {
	tempDir := t.TempDir()
	config := &Config{}

	testFile := filepath.Join(tempDir, "test.md")
	writePrompt(t, testFile, "Test prompt content")
	content, err := config.loadPromptFromFile(testFile, "system", OperationQuestions)
	require.NoError(t, err)
	assert.Equal(t, "Test prompt content", content)

	emptyFile := filepath.Join(tempDir, "empty.md")
	writePrompt(t, emptyFile, "")
	_, err = config.loadPromptFromFile(emptyFile, "system", OperationQuestions)
	assert.Error(t, err)

	_, err = config.loadPromptFromFile(filepath.Join(tempDir, "nonexistent.md"), "system", OperationQuestions)
	assert.Error(t, err)
}

func TestPromptsForPrefersFilesOverInline(t *testing.T) {
	tempDir := t.TempDir()
	systemFile := filepath.Join(tempDir, "system.md")
	writePrompt(t, systemFile, "from file")

	config := &Config{
		AI: AIConfig{
			Provider: "gemini",
			Questions: OperationAIConfig{
				Prompts: PromptConfig{
					System:     "inline system",
					SystemFile: systemFile,
					Task:       "inline task",
				},
			},
		},
	}
	t.Cleanup(func() { loadedPrompts.replace(nil) })
	require.NoError(t, config.LoadPromptsFromFiles())

	prompts := config.PromptsFor(OperationQuestions)
	assert.Equal(t, "from file", prompts.System)
	assert.Equal(t, "inline task", prompts.Task)

	assert.Equal(t, LoadedPrompts{}, config.PromptsFor(OperationAnalysis))
}

func TestWatchPromptsReloadsOnChange(t *testing.T) {
	tempDir := t.TempDir()
	taskFile := filepath.Join(tempDir, "task.md")
	writePrompt(t, taskFile, "before")

	config := &Config{AI: AIConfig{Analysis: OperationAIConfig{Prompts: PromptConfig{TaskFile: taskFile}}}}
	t.Cleanup(func() { loadedPrompts.replace(nil) })
	require.NoError(t, config.LoadPromptsFromFiles())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, config.WatchPrompts(ctx))

	writePrompt(t, taskFile, "after")

	assert.Eventually(t, func() bool {
		return GetPromptsForOperation(OperationAnalysis).Task == "after"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchPromptsWithoutFiles(t *testing.T) {
	config := &Config{}
	assert.NoError(t, config.WatchPrompts(context.Background()))
}
