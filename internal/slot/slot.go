// Package slot provides the durable credential slot: a single named storage
// location holding the session token so it survives a restart or reload.
package slot

import (
	"errors"
	"sync"
)

var (
	// ErrEmpty is returned by Load when nothing is stored in the slot
	ErrEmpty = errors.New("credential slot is empty")

	// ErrEmptyToken is returned by Save for an empty token
	ErrEmptyToken = errors.New("refusing to store an empty token")
)

// Slot is one key holding one non-empty string
type Slot interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Memory is an in-process slot
type Memory struct {
	mu    sync.Mutex
	token string
}

// NewMemory returns a memory slot, optionally pre-filled
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrEmpty
	}
	return m.token, nil
}

func (m *Memory) Save(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
