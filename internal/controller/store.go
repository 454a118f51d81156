package controller

import (
	"sync"

	"github.com/kjstillabower/sunrise-lookup/internal/models"
)

// ResultStore is the single owner of the last successful SunTimeResult. Only a
// successful fetch replaces it.
type ResultStore struct {
	mu     sync.RWMutex
	result *models.SunTimeResult
}

// Load returns the stored result; ok is false before the first success.
func (s *ResultStore) Load() (models.SunTimeResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return models.SunTimeResult{}, false
	}
	return *s.result, true
}

// Replace swaps in r wholesale.
func (s *ResultStore) Replace(r models.SunTimeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &r
}
