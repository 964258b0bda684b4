package config

import (
	"maps"
	"sync"
)

// LoadedPrompts holds the persona (system) and task prompt text of one operation
type LoadedPrompts struct {
	System string
	Task   string
}

// promptStore keeps prompt file contents. It is swapped as a whole on reload.
type promptStore struct {
	mu          sync.RWMutex
	byOperation map[string]LoadedPrompts
}

var loadedPrompts = &promptStore{byOperation: map[string]LoadedPrompts{}}

func (s *promptStore) get(operation string) LoadedPrompts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byOperation[operation]
}

func (s *promptStore) replace(next map[string]LoadedPrompts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOperation = maps.Clone(next)
}

// GetPromptsForOperation returns a copy of the file-loaded prompts for an operation
func GetPromptsForOperation(operation string) LoadedPrompts {
	return loadedPrompts.get(operation)
}

// PromptsFor resolves the prompts of an operation: file contents win over
// inline configuration. Empty fields mean the built-in default applies.
func (c *Config) PromptsFor(operation string) LoadedPrompts {
	loaded := GetPromptsForOperation(operation)
	opCfg, ok := c.GetOperationConfig(operation)
	if !ok {
		return loaded
	}
	return LoadedPrompts{
		System: resolvePrompt(loaded.System, opCfg.Prompts.System),
		Task:   resolvePrompt(loaded.Task, opCfg.Prompts.Task),
	}
}

func resolvePrompt(loaded, inline string) string {
	if loaded != "" {
		return loaded
	}
	return inline
}
