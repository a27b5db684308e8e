package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Verify checks a run directory written by Writer: the run record parses,
// every task that ran has a record, the recorded params hash matches and
// every referenced blob is present with the content its name and hash claim.
func Verify(runDir string) (*RunRecord, error) {
	if runDir == "" {
		return nil, fmt.Errorf("run directory is required")
	}
	var run RunRecord
	if err := readJSON(filepath.Join(runDir, "run.json"), &run); err != nil {
		return nil, fmt.Errorf("read run record: %w", err)
	}
	if run.ID != filepath.Base(filepath.Clean(runDir)) {
		return nil, fmt.Errorf("run id %q does not match directory %s", run.ID, filepath.Base(runDir))
	}
	if run.ParamsHash != HashParams(run.Params) {
		return nil, fmt.Errorf("params hash mismatch")
	}

	var expected []string
	switch run.Status {
	case "succeeded":
		expected = run.Order
	case "failed":
		for _, id := range run.Order {
			expected = append(expected, id)
			if id == run.FailedTask {
				break
			}
		}
	case "running":
		return &run, fmt.Errorf("run %s did not finish", run.ID)
	default:
		return nil, fmt.Errorf("unknown run status %q", run.Status)
	}

	for _, id := range expected {
		var task TaskRecord
		if err := readJSON(filepath.Join(runDir, "tasks", sanitizeKind(id)+".json"), &task); err != nil {
			return nil, fmt.Errorf("task %s: %w", id, err)
		}
		if task.ID != id {
			return nil, fmt.Errorf("task record %s names task %q", id, task.ID)
		}
		if err := verifyBlob(runDir, task.PromptRef, task.Prompt, task.PromptHash); err != nil {
			return nil, fmt.Errorf("task %s prompt: %w", id, err)
		}
		if err := verifyBlob(runDir, task.OutputRef, task.Output, ""); err != nil {
			return nil, fmt.Errorf("task %s output: %w", id, err)
		}
	}
	return &run, nil
}

func verifyBlob(runDir, ref, inline, sha string) error {
	if ref == "" {
		return nil
	}
	full, err := safeJoin(runDir, ref)
	if err != nil {
		return fmt.Errorf("invalid blob ref %q: %w", ref, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("missing blob %s: %w", ref, err)
	}
	sum := sha256.Sum256(data)
	actual := hex.EncodeToString(sum[:])
	if sha != "" && actual != sha {
		return fmt.Errorf("hash mismatch for %s", ref)
	}
	if !strings.HasSuffix(strings.TrimSuffix(path.Base(ref), ".txt"), "-"+actual[:16]) {
		return fmt.Errorf("blob %s does not match its name", ref)
	}
	if !strings.HasPrefix(string(data), inline) {
		return fmt.Errorf("inline text does not match blob %s", ref)
	}
	return nil
}

func safeJoin(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute path not allowed")
	}
	for _, seg := range strings.Split(filepath.FromSlash(rel), string(filepath.Separator)) {
		if seg == ".." {
			return "", fmt.Errorf("path traversal detected")
		}
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." {
		return "", fmt.Errorf("invalid path")
	}
	return filepath.Join(root, clean), nil
}

func readJSON(path string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, value)
}
