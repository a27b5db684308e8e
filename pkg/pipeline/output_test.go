package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestResolveOutputPath(t *testing.T) {
	dir := t.TempDir()

	got, err := ResolveOutputPath(dir, "final_study_guide_english.md")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != filepath.Join(dir, "final_study_guide_english.md") {
		t.Fatalf("unexpected path %s", got)
	}

	if _, err := ResolveOutputPath(dir, "sub/out.md"); err != nil {
		t.Fatalf("nested relative path should be allowed: %v", err)
	}

	for _, bad := range []string{"", "../escape.md", "a/../../x.md", "/etc/passwd"} {
		if _, err := ResolveOutputPath(dir, bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestWriteOutputRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.md")
	text := "Größe ö ä ß — 日本語"

	if err := WriteOutput(path, []byte(text)); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadOutput(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != text {
		t.Fatalf("round trip changed text: %q", got)
	}

	if err := WriteOutput(path, []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := ReadOutput(path); got != "second" {
		t.Fatalf("expected overwrite, got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestReadOutputMissing(t *testing.T) {
	_, err := ReadOutput(filepath.Join(t.TempDir(), "missing.md"))
	if !errors.Is(err, ErrOutputMissing) {
		t.Fatalf("expected ErrOutputMissing, got %v", err)
	}
}

func TestWriteOutputConcurrentWritersNeverInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_newspaper.md")

	const writers = 16
	payloads := make([][]byte, writers)
	for i := range payloads {
		payloads[i] = bytes.Repeat([]byte(fmt.Sprintf("writer-%02d|", i)), 20000)
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- WriteOutput(path, payloads[i])
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	matched := false
	for _, p := range payloads {
		if bytes.Equal(got, p) {
			matched = true
			break
		}
	}
	if !matched {
		t.Fatalf("final file is not exactly one writer's payload")
	}
}
