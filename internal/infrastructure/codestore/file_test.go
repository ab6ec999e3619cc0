package codestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazir-realty/api/internal/domain"
)

func tempStore(t *testing.T, ttl time.Duration) (*File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codes.json")
	return NewFile(path, ttl), path
}

func TestFile_PutThenValidate(t *testing.T) {
	f, _ := tempStore(t, time.Minute)

	require.NoError(t, f.Put(domain.VerificationCode{Contact: "+996555123456", Code: "4321", IssuedAt: time.Now()}))
	assert.True(t, f.Validate("+996555123456", "4321"))
	assert.False(t, f.Validate("+996555123456", "4321"), "a consumed code must not validate twice")
}

func TestFile_SharedBetweenProcesses(t *testing.T) {
	// The web and bot processes each construct their own File over the same
	// path; a write from one must be visible to the other.
	writer, path := tempStore(t, time.Minute)
	reader := NewFile(path, time.Minute)

	c, err := writer.Issue("+996555123456", nil)
	require.NoError(t, err)

	vc, ok := reader.Get("+996555123456")
	require.True(t, ok)
	assert.Equal(t, c, vc.Code)
}

func TestFile_MissingFileIsEmpty(t *testing.T) {
	f, _ := tempStore(t, time.Minute)

	_, ok := f.Get("+996555123456")
	assert.False(t, ok)
	assert.Equal(t, 0, f.Len())
}

func TestFile_CorruptFileIsEmpty(t *testing.T) {
	f, path := tempStore(t, time.Minute)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := f.Get("+996555123456")
	assert.False(t, ok)

	// The store must recover: a write replaces the corrupt content.
	require.NoError(t, f.Put(domain.VerificationCode{Contact: "+996555123456", Code: "9999", IssuedAt: time.Now()}))
	assert.True(t, f.Validate("+996555123456", "9999"))
}

func TestFile_ExpiredEntryIsGone(t *testing.T) {
	f, _ := tempStore(t, time.Minute)
	require.NoError(t, f.Put(domain.VerificationCode{
		Contact:  "+996555123456",
		Code:     "1234",
		IssuedAt: time.Now().Add(-2 * time.Minute),
	}))

	_, ok := f.Get("+996555123456")
	assert.False(t, ok)
	assert.False(t, f.Validate("+996555123456", "1234"))
}

func TestFile_SweepPersists(t *testing.T) {
	f, path := tempStore(t, time.Minute)
	require.NoError(t, f.Put(domain.VerificationCode{Contact: "old", Code: "1111", IssuedAt: time.Now().Add(-5 * time.Minute)}))
	require.NoError(t, f.Put(domain.VerificationCode{Contact: "fresh", Code: "2222", IssuedAt: time.Now()}))

	assert.Equal(t, 1, f.Sweep(time.Now()))

	// A fresh store over the same file sees the sweep result.
	assert.Equal(t, 1, NewFile(path, time.Minute).Len())
}
