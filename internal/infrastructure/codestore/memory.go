package codestore

import (
	"sync"
	"time"

	"github.com/wazir-realty/api/internal/domain"
	"github.com/wazir-realty/api/internal/pkg/code"
)

// Memory is the in-memory Store. Instances are independent so tests and the
// web/bot processes each own their state explicitly; there is no package-level
// singleton.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]domain.VerificationCode
	ttl     time.Duration
}

// NewMemory returns an empty in-memory store whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]domain.VerificationCode),
		ttl:     ttl,
	}
}

func (m *Memory) Issue(contact string, ownerID *int64) (string, error) {
	c, err := code.New()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.entries[contact] = domain.VerificationCode{
		Contact:  contact,
		Code:     c,
		IssuedAt: time.Now(),
		OwnerID:  ownerID,
	}
	m.mu.Unlock()
	return c, nil
}

func (m *Memory) Get(contact string) (*domain.VerificationCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vc, ok := m.entries[contact]
	if !ok {
		return nil, false
	}
	if time.Since(vc.IssuedAt) > m.ttl {
		delete(m.entries, contact)
		return nil, false
	}
	vc.Contact = contact
	return &vc, true
}

func (m *Memory) Put(vc domain.VerificationCode) error {
	m.mu.Lock()
	m.entries[vc.Contact] = vc
	m.mu.Unlock()
	return nil
}

func (m *Memory) Validate(contact, c string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	vc, ok := m.entries[contact]
	if !ok {
		return false
	}
	if time.Since(vc.IssuedAt) > m.ttl {
		delete(m.entries, contact)
		return false
	}
	if vc.Code != c {
		return false
	}
	delete(m.entries, contact)
	return true
}

func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for contact, vc := range m.entries {
		if now.Sub(vc.IssuedAt) > m.ttl {
			delete(m.entries, contact)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, for the status endpoint.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
