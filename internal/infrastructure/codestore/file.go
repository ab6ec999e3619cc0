package codestore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/wazir-realty/api/internal/domain"
	"github.com/wazir-realty/api/internal/pkg/code"
)

// File is the file-backed Store shared between the web process and the bot
// process. Every mutation rewrites the whole file; every query re-reads it, so
// a write from the other process is visible on the next call. A read racing a
// rewrite can observe a truncated file — that parses as "no codes", never as
// an error surfaced to the caller.
type File struct {
	mu   sync.Mutex
	path string
	ttl  time.Duration
}

// NewFile returns a store backed by the JSON file at path.
func NewFile(path string, ttl time.Duration) *File {
	return &File{path: path, ttl: ttl}
}

func (f *File) Issue(contact string, ownerID *int64) (string, error) {
	c, err := code.New()
	if err != nil {
		return "", err
	}
	vc := domain.VerificationCode{
		Contact:  contact,
		Code:     c,
		IssuedAt: time.Now(),
		OwnerID:  ownerID,
	}
	if err := f.Put(vc); err != nil {
		// The caller shows the code to the requester instead of crashing.
		return c, err
	}
	return c, nil
}

func (f *File) Get(contact string) (*domain.VerificationCode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := f.load()
	vc, ok := codes[contact]
	if !ok {
		return nil, false
	}
	if time.Since(vc.IssuedAt) > f.ttl {
		delete(codes, contact)
		f.save(codes)
		return nil, false
	}
	vc.Contact = contact
	return &vc, true
}

func (f *File) Put(vc domain.VerificationCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := f.load()
	codes[vc.Contact] = vc
	if err := f.save(codes); err != nil {
		return fmt.Errorf("write codes file: %w", domain.ErrStorageUnavailable)
	}
	return nil
}

func (f *File) Validate(contact, c string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := f.load()
	vc, ok := codes[contact]
	if !ok {
		return false
	}
	if time.Since(vc.IssuedAt) > f.ttl {
		delete(codes, contact)
		f.save(codes)
		return false
	}
	if vc.Code != c {
		return false
	}
	delete(codes, contact)
	f.save(codes)
	return true
}

func (f *File) Sweep(now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := f.load()
	removed := 0
	for contact, vc := range codes {
		if now.Sub(vc.IssuedAt) > f.ttl {
			delete(codes, contact)
			removed++
		}
	}
	if removed > 0 {
		f.save(codes)
	}
	return removed
}

// Len reports the number of entries currently on disk, for the status
// endpoint. Expired entries still awaiting a sweep are included.
func (f *File) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.load())
}

// load reads the whole file. Missing, empty or unparseable content all yield
// an empty map: the bot may be mid-rewrite on the same file.
func (f *File) load() map[string]domain.VerificationCode {
	codes := make(map[string]domain.VerificationCode)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("codes file unreadable, treating as empty", "path", f.path, "err", err)
		}
		return codes
	}
	if len(data) == 0 {
		return codes
	}
	if err := json.Unmarshal(data, &codes); err != nil {
		slog.Warn("codes file unparseable, treating as empty", "path", f.path, "err", err)
		return make(map[string]domain.VerificationCode)
	}
	for contact, vc := range codes {
		vc.Contact = contact
		codes[contact] = vc
	}
	return codes
}

func (f *File) save(codes map[string]domain.VerificationCode) error {
	data, err := json.MarshalIndent(codes, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		slog.Error("failed to write codes file", "path", f.path, "err", err)
		return err
	}
	return nil
}
