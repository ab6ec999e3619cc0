// Package msgstore persists the chat message log as a JSON file,
// {room: [messages...]}, human-readable and rewritten in full on every save.
package msgstore

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/wazir-realty/api/internal/domain"
)

// File is the durable backing for the hub's message log. The hub is the sole
// writer; this type only moves the map to and from disk.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the full log eagerly. A missing or empty file is an empty log.
// A corrupt file logs a warning and yields an empty log; chat must come up
// even when the snapshot is damaged.
func (f *File) Load() map[string][]domain.Message {
	logs := make(map[string][]domain.Message)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("message log unreadable, starting empty", "path", f.path, "err", err)
		}
		return logs
	}
	if len(data) == 0 {
		return logs
	}
	if err := json.Unmarshal(data, &logs); err != nil {
		slog.Warn("message log corrupt, starting empty", "path", f.path, "err", err)
		return make(map[string][]domain.Message)
	}
	return logs
}

// Save rewrites the entire log map.
func (f *File) Save(logs map[string][]domain.Message) error {
	data, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}
