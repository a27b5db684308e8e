package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/zen-systems/crewforge/pkg/adapter"
)

func TestEvidenceWriter(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, "run-123")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	run := RunRecord{
		ID:         "run-123",
		Timestamp:  time.Now().UTC(),
		Pipeline:   "bible-study",
		ParamsHash: "abc",
		Order:      []string{"historical-context", "editing"},
		Status:     "succeeded",
		Usage:      &adapter.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
	}
	if err := writer.WriteRun(run); err != nil {
		t.Fatalf("write run: %v", err)
	}

	task := TaskRecord{
		ID:      "editing",
		Role:    "editor",
		Adapter: "mock",
		Model:   "mock-1",
		Output:  "Größe",
		ToolCalls: []ToolRecord{
			{Name: "web_search", Query: "Genesis"},
		},
	}
	if err := writer.WriteTask(task); err != nil {
		t.Fatalf("write task: %v", err)
	}

	if _, err := os.Stat(filepath.Join(writer.RunDir(), "run.json")); err != nil {
		t.Fatalf("missing run.json: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(writer.RunDir(), "tasks", "editing.json"))
	if err != nil {
		t.Fatalf("missing task file: %v", err)
	}
	var decoded TaskRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if decoded.Output != "Größe" || len(decoded.ToolCalls) != 1 {
		t.Fatalf("unexpected task record %+v", decoded)
	}

	if runtime.GOOS != "windows" {
		assertPerm(t, writer.RunDir(), 0700)
		assertPerm(t, filepath.Join(writer.RunDir(), "tasks"), 0700)
		assertPerm(t, filepath.Join(writer.RunDir(), "blobs"), 0700)
		assertPerm(t, filepath.Join(writer.RunDir(), "run.json"), 0600)
		assertPerm(t, filepath.Join(writer.RunDir(), "tasks", "editing.json"), 0600)
	}
}

func TestWriteTaskRequiresID(t *testing.T) {
	writer, err := NewWriter(t.TempDir(), "run")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := writer.WriteTask(TaskRecord{}); err == nil {
		t.Fatalf("expected error for empty task id")
	}
}

func TestWriteBlob(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, "run1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	content := []byte("hello")
	sum := sha256.Sum256(content)
	expectedSha := hex.EncodeToString(sum[:])

	ref, sha, err := writer.WriteBlob("prompt", content)
	if err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if sha != expectedSha {
		t.Fatalf("sha mismatch: %s", sha)
	}

	blobPath := filepath.Join(writer.RunDir(), ref)
	data, err := os.ReadFile(blobPath)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("content mismatch: %q", string(data))
	}
	if runtime.GOOS != "windows" {
		assertPerm(t, blobPath, 0600)
	}

	ref2, sha2, err := writer.WriteBlob("prompt", content)
	if err != nil {
		t.Fatalf("write blob again: %v", err)
	}
	if ref2 != ref || sha2 != sha {
		t.Fatalf("expected same ref and sha")
	}
}

func TestWriteBlobKindSanitization(t *testing.T) {
	writer, err := NewWriter(t.TempDir(), "run2")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	ref, _, err := writer.WriteBlob("Prompt 123/../", []byte("x"))
	if err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if !strings.HasPrefix(ref, "blobs/prompt123-") {
		t.Fatalf("unexpected ref: %s", ref)
	}
	if strings.Count(ref, "/") != 1 {
		t.Fatalf("unexpected path separators in ref: %s", ref)
	}

	ref, _, err = writer.WriteBlob("!!!", []byte("y"))
	if err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if !strings.HasPrefix(ref, "blobs/blob-") {
		t.Fatalf("expected blob kind fallback in ref: %s", ref)
	}
}

func TestInline(t *testing.T) {
	writer, err := NewWriter(t.TempDir(), "run3")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	inline, ref, sha, err := writer.Inline("output", "short")
	if err != nil || inline != "short" || ref != "" || sha != "" {
		t.Fatalf("short text should stay inline: %q %q %q %v", inline, ref, sha, err)
	}

	long := strings.Repeat("x", InlineLimit+10)
	inline, ref, sha, err = writer.Inline("output", long)
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	if len(inline) != InlineLimit || ref == "" || sha == "" {
		t.Fatalf("long text should be stored as blob")
	}
	data, err := os.ReadFile(filepath.Join(writer.RunDir(), ref))
	if err != nil || string(data) != long {
		t.Fatalf("blob does not hold full text: %v", err)
	}
}

func assertPerm(t *testing.T, path string, expected os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if info.Mode().Perm() != expected {
		t.Fatalf("expected %s mode %o, got %o", path, expected, info.Mode().Perm())
	}
}
