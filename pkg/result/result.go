// Package result holds the immutable output of a single pipeline task.
package result

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// TaskResult is the text one task produced during a run.
type TaskResult struct {
	ID        string            `json:"id"`
	TaskID    string            `json:"task_id"`
	Text      string            `json:"text"`
	Adapter   string            `json:"adapter"`
	Model     string            `json:"model"`
	Prompt    string            `json:"prompt"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Hash      string            `json:"hash"`
}

// New creates a TaskResult with computed hash.
func New(taskID, text, adapter, model, prompt string) *TaskResult {
	r := &TaskResult{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Text:      text,
		Adapter:   adapter,
		Model:     model,
		Prompt:    prompt,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UTC(),
	}
	r.Hash = r.computeHash()
	return r
}

// WithMetadata returns a copy of the result with one more metadata entry.
func (r *TaskResult) WithMetadata(key, value string) *TaskResult {
	cp := *r
	cp.Metadata = copyMetadata(r.Metadata)
	cp.Metadata[key] = value
	return &cp
}

// Bytes returns the result text as UTF-8 bytes.
func (r *TaskResult) Bytes() []byte {
	if r == nil {
		return nil
	}
	return []byte(r.Text)
}

func (r *TaskResult) computeHash() string {
	h := sha256.New()
	h.Write([]byte(r.Text))
	h.Write([]byte(r.Adapter))
	h.Write([]byte(r.Model))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func copyMetadata(m map[string]string) map[string]string {
	newM := make(map[string]string, len(m)+1)
	for k, v := range m {
		newM[k] = v
	}
	return newM
}
