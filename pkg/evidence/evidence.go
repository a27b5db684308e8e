// Package evidence writes an on-disk record of a run: what was asked of
// each task, which model answered and what it produced.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zen-systems/crewforge/pkg/adapter"
)

// RunRecord captures run-level metadata.
type RunRecord struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	Pipeline     string            `json:"pipeline"`
	PipelineFile string            `json:"pipeline_file,omitempty"`
	Params       map[string]string `json:"params,omitempty"`
	ParamsHash   string            `json:"params_hash"`
	Order        []string          `json:"order"`
	OutputPath   string            `json:"output_path,omitempty"`
	Usage        *adapter.Usage    `json:"usage,omitempty"`
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
	FailedTask   string            `json:"failed_task,omitempty"`
	ToolVersions map[string]string `json:"tool_versions,omitempty"`
}

// TaskRecord captures evidence for a single task.
type TaskRecord struct {
	ID             string         `json:"id"`
	Role           string         `json:"role"`
	DependsOn      []string       `json:"depends_on,omitempty"`
	Adapter        string         `json:"adapter"`
	Model          string         `json:"model"`
	Prompt         string         `json:"prompt,omitempty"`
	PromptRef      string         `json:"prompt_ref,omitempty"`
	PromptHash     string         `json:"prompt_hash,omitempty"`
	Output         string         `json:"output,omitempty"`
	OutputRef      string         `json:"output_ref,omitempty"`
	OutputHash     string         `json:"output_hash,omitempty"`
	ToolCalls      []ToolRecord   `json:"tool_calls,omitempty"`
	Usage          *adapter.Usage `json:"usage,omitempty"`
	Error          string         `json:"error,omitempty"`
	ErrorKind      string         `json:"error_kind,omitempty"`
	DurationMillis int64          `json:"duration_ms"`
}

// ToolRecord captures one tool invocation made while preparing a task.
type ToolRecord struct {
	Name           string `json:"name"`
	Query          string `json:"query"`
	Error          string `json:"error,omitempty"`
	DurationMillis int64  `json:"duration_ms"`
}

// InlineLimit is the longest text stored directly in a record; longer
// text goes to a blob.
const InlineLimit = 4096

// Writer writes evidence bundles to disk.
type Writer struct {
	baseDir string
	runDir  string
}

// NewWriter creates a new evidence writer rooted at baseDir/runID.
func NewWriter(baseDir, runID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	for _, dir := range []string{runDir, filepath.Join(runDir, "tasks"), filepath.Join(runDir, "blobs")} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
		if err := os.Chmod(dir, 0700); err != nil {
			return nil, err
		}
	}

	return &Writer{baseDir: baseDir, runDir: runDir}, nil
}

// RunDir returns the run directory path.
func (w *Writer) RunDir() string {
	return w.runDir
}

// WriteRun writes run metadata to run.json. It is called once when the run
// starts and again when it ends.
func (w *Writer) WriteRun(record RunRecord) error {
	return writeJSON(filepath.Join(w.runDir, "run.json"), record)
}

// WriteTask writes a task record to tasks/<id>.json.
func (w *Writer) WriteTask(record TaskRecord) error {
	if record.ID == "" {
		return fmt.Errorf("task id is required")
	}
	path := filepath.Join(w.runDir, "tasks", fmt.Sprintf("%s.json", sanitizeKind(record.ID)))
	return writeJSON(path, record)
}

// Inline returns text when it fits InlineLimit. Otherwise it stores text as
// a blob and returns the truncated text with the blob reference and hash.
func (w *Writer) Inline(kind, text string) (inline, ref, sha string, err error) {
	if len(text) <= InlineLimit {
		return text, "", "", nil
	}
	ref, sha, err = w.WriteBlob(kind, []byte(text))
	if err != nil {
		return "", "", "", err
	}
	return text[:InlineLimit], ref, sha, nil
}

// WriteBlob stores content under blobs/<kind>-<sha>.txt and returns the
// run-relative reference and the content hash. Identical content maps to
// the same blob.
func (w *Writer) WriteBlob(kind string, content []byte) (string, string, error) {
	sum := sha256.Sum256(content)
	sha := hex.EncodeToString(sum[:])
	ref := fmt.Sprintf("blobs/%s-%s.txt", sanitizeKind(kind), sha[:16])

	path := filepath.Join(w.runDir, filepath.FromSlash(ref))
	if _, err := os.Stat(path); err == nil {
		return ref, sha, nil
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return "", "", err
	}
	return ref, sha, nil
}

func sanitizeKind(kind string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(kind) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		}
	}
	out := strings.Trim(sb.String(), "-")
	if out == "" {
		return "blob"
	}
	return out
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// HashParams returns a stable hash of a parameter map.
func HashParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(params[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
