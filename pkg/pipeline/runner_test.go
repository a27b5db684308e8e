package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/zen-systems/crewforge/pkg/adapter"
	"github.com/zen-systems/crewforge/pkg/evidence"
	"github.com/zen-systems/crewforge/pkg/prompt"
	"github.com/zen-systems/crewforge/pkg/tool"
)

type recordingAdapter struct {
	mu       sync.Mutex
	requests []adapter.Request
	respond  func(n int, req adapter.Request) (*adapter.Response, error)
}

func (a *recordingAdapter) Name() string     { return "recording" }
func (a *recordingAdapter) Models() []string { return []string{"rec-1"} }

func (a *recordingAdapter) Generate(_ context.Context, req adapter.Request) (*adapter.Response, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	n := len(a.requests)
	a.mu.Unlock()
	if a.respond != nil {
		return a.respond(n, req)
	}
	return &adapter.Response{
		Text:  fmt.Sprintf("output %d", n),
		Model: req.Model,
		Usage: &adapter.Usage{PromptTokens: 10, CompletionTokens: 5},
	}, nil
}

func (a *recordingAdapter) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func studyPipeline(a adapter.Adapter) *Pipeline {
	roles := map[string]*Role{
		"historian":  {Name: "Biblical Historian", Objective: "Explain the context of {{ .book }}", Persona: "A scholar of the ancient world."},
		"theologian": {Name: "Theologian", Objective: "Analyze {{ .book }}", Persona: "A careful theologian."},
		"pastor":     {Name: "Pastor", Objective: "Apply {{ .book }}", Persona: "A caring pastor."},
		"editor":     {Name: "Editor", Objective: "Assemble the guide in {{ .language }}", Persona: "A meticulous editor."},
	}
	section := func(id, role, title string) *Task {
		return &Task{
			ID:   id,
			Role: role,
			Template: prompt.Template{
				Description:    title + " for **{{ .book }}**. Your output MUST be in {{ .language }}.",
				ExpectedOutput: "A Markdown section written in {{ .language }}.",
				Params:         []string{"book", "language"},
			},
		}
	}
	editing := section("editing", "editor", "Assemble the final study guide")
	editing.DependsOn = []string{"historical-context", "theological-analysis", "application"}
	editing.OutputPath = "final_study_guide_{{ lower .language }}.md"

	return &Pipeline{
		Name:  "bible-study",
		Roles: roles,
		Tasks: []*Task{
			section("historical-context", "historian", "Create the 'Historical Background' section"),
			section("theological-analysis", "theologian", "Create the 'Theological Analysis' section"),
			section("application", "pastor", "Create the 'Practical Application' section"),
			editing,
		},
		Adapters: map[string]adapter.Adapter{"recording": a},
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingAdapter{}
	p := studyPipeline(rec)

	res, err := Run(context.Background(), p, RunOptions{
		Params:    map[string]string{"book": "Genesis", "language": "English"},
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if rec.calls() != 4 {
		t.Fatalf("expected 4 model calls, got %d", rec.calls())
	}
	wantOrder := []string{"historical-context", "theological-analysis", "application", "editing"}
	if strings.Join(res.Order, ",") != strings.Join(wantOrder, ",") {
		t.Fatalf("unexpected order %v", res.Order)
	}

	wantPath := filepath.Join(dir, "final_study_guide_english.md")
	if res.OutputPath != wantPath {
		t.Fatalf("output path = %s, want %s", res.OutputPath, wantPath)
	}
	content, err := ReadOutput(wantPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if content != res.Terminal.Text {
		t.Fatalf("file content %q differs from displayed text %q", content, res.Terminal.Text)
	}

	first := rec.requests[0]
	if !strings.Contains(first.Prompt, "**Genesis**") || !strings.Contains(first.Prompt, "MUST be in English") {
		t.Fatalf("prompt missing parameters: %q", first.Prompt)
	}
	if !strings.HasPrefix(first.System, "You are Biblical Historian.") || !strings.Contains(first.System, "Explain the context of Genesis") {
		t.Fatalf("unexpected system prompt: %q", first.System)
	}
	if first.Model != "rec-1" {
		t.Fatalf("expected fallback to first adapter model, got %q", first.Model)
	}

	last := rec.requests[3].Prompt
	i1 := strings.Index(last, "output 1")
	i2 := strings.Index(last, "output 2")
	i3 := strings.Index(last, "output 3")
	if i1 < 0 || i2 < 0 || i3 < 0 || !(i1 < i2 && i2 < i3) {
		t.Fatalf("editing prompt should carry upstream outputs in dependency order: %q", last)
	}

	if res.Usage.TotalTokens != 60 || len(res.Calls) != 4 {
		t.Fatalf("unexpected usage %+v (%d calls)", res.Usage, len(res.Calls))
	}
}

func TestRunShortCircuitsOnFailure(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingAdapter{
		respond: func(n int, req adapter.Request) (*adapter.Response, error) {
			if n == 2 {
				return nil, adapter.NewError("recording", 429, errors.New("quota exhausted"))
			}
			return &adapter.Response{Text: "fine"}, nil
		},
	}

	res, err := Run(context.Background(), studyPipeline(rec), RunOptions{
		Params:    map[string]string{"book": "Ruth", "language": "English"},
		OutputDir: dir,
	})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if res != nil {
		t.Fatalf("partial results must be discarded")
	}
	if rec.calls() != 2 {
		t.Fatalf("no task after the failing one may run, got %d calls", rec.calls())
	}

	taskID, ok := IsTaskError(err)
	if !ok || taskID != "theological-analysis" {
		t.Fatalf("expected failure at theological-analysis, got %v", err)
	}
	if adapter.KindOf(err) != adapter.KindQuota {
		t.Fatalf("expected quota kind, got %s", adapter.KindOf(err))
	}
	if _, err := os.Stat(filepath.Join(dir, "final_study_guide_english.md")); !os.IsNotExist(err) {
		t.Fatalf("no output file should be written on failure")
	}
}

func TestRunMissingParameterMakesNoCalls(t *testing.T) {
	rec := &recordingAdapter{}
	_, err := Run(context.Background(), studyPipeline(rec), RunOptions{
		Params:    map[string]string{"book": "Genesis"},
		OutputDir: t.TempDir(),
	})
	if !errors.Is(err, prompt.ErrMissingParameter) {
		t.Fatalf("expected missing parameter error, got %v", err)
	}
	if rec.calls() != 0 {
		t.Fatalf("expected no model calls, got %d", rec.calls())
	}
}

func TestRunEmptyResponseIsMalformed(t *testing.T) {
	rec := &recordingAdapter{
		respond: func(int, adapter.Request) (*adapter.Response, error) {
			return &adapter.Response{Text: "  \n"}, nil
		},
	}
	_, err := Run(context.Background(), studyPipeline(rec), RunOptions{
		Params:    map[string]string{"book": "Genesis", "language": "English"},
		OutputDir: t.TempDir(),
	})
	if adapter.KindOf(err) != adapter.KindMalformed {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if rec.calls() != 1 {
		t.Fatalf("expected run to stop after the first task")
	}
}

func TestRunPreservesUTF8(t *testing.T) {
	dir := t.TempDir()
	text := "# Studienführer\n\nGröße, Schöpfung und Ärger: ö ä ß ü."
	rec := &recordingAdapter{
		respond: func(int, adapter.Request) (*adapter.Response, error) {
			return &adapter.Response{Text: text}, nil
		},
	}

	res, err := Run(context.Background(), studyPipeline(rec), RunOptions{
		Params:    map[string]string{"book": "Römer", "language": "German"},
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if filepath.Base(res.OutputPath) != "final_study_guide_german.md" {
		t.Fatalf("unexpected output name %s", res.OutputPath)
	}
	data, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != text {
		t.Fatalf("round trip changed text: %q", string(data))
	}
	if !strings.Contains(rec.requests[0].Prompt, "**Römer**") {
		t.Fatalf("non-ASCII parameter not embedded verbatim")
	}
}

func TestRunBindsRoleAdapterAndTemperature(t *testing.T) {
	primary := &recordingAdapter{}
	other := &recordingAdapter{}
	p := studyPipeline(primary)
	p.Adapters["other"] = other
	p.DefaultAdapter = "recording"
	p.DefaultModel = "default-model"
	p.Temperature = adapter.Float(0.7)
	p.Roles["editor"].Adapter = "other"
	p.Roles["editor"].Model = "editor-model"
	p.Roles["editor"].Temperature = adapter.Float(0.2)

	_, err := Run(context.Background(), p, RunOptions{
		Params:    map[string]string{"book": "Genesis", "language": "English"},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if primary.calls() != 3 || other.calls() != 1 {
		t.Fatalf("unexpected call split %d/%d", primary.calls(), other.calls())
	}
	if primary.requests[0].Model != "default-model" || *primary.requests[0].Temperature != 0.7 {
		t.Fatalf("pipeline defaults not applied: %+v", primary.requests[0])
	}
	if other.requests[0].Model != "editor-model" || *other.requests[0].Temperature != 0.2 {
		t.Fatalf("role binding not applied: %+v", other.requests[0])
	}
}

func TestRunUnknownAdapter(t *testing.T) {
	p := studyPipeline(&recordingAdapter{})
	p.Adapters["second"] = &recordingAdapter{}
	_, err := Run(context.Background(), p, RunOptions{
		Params:    map[string]string{"book": "Genesis", "language": "English"},
		OutputDir: t.TempDir(),
	})
	if err == nil || !strings.Contains(err.Error(), "adapter") {
		t.Fatalf("expected adapter resolution error with two adapters and no default, got %v", err)
	}
}

type fakeTool struct {
	name    string
	queries []string
	err     error
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Run(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return "", f.err
	}
	return "1. [Source](https://example.com)", nil
}

var _ tool.Tool = (*fakeTool)(nil)

func TestRunCallsRoleTools(t *testing.T) {
	rec := &recordingAdapter{}
	p := studyPipeline(rec)
	p.Roles["historian"].Tools = []string{"web_search", "web_scrape"}
	p.Tasks[0].SearchQuery = "{{ .book }} historical background"

	search := &fakeTool{name: "web_search"}
	_, err := Run(context.Background(), p, RunOptions{
		Params:    map[string]string{"book": "Genesis", "language": "English"},
		OutputDir: t.TempDir(),
		Tools:     map[string]tool.Tool{"web_search": search},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(search.queries) != 1 || search.queries[0] != "Genesis historical background" {
		t.Fatalf("unexpected tool queries %v", search.queries)
	}
	if !strings.Contains(rec.requests[0].Prompt, "Research notes:\n### web_search\n1. [Source]") {
		t.Fatalf("research notes missing from prompt: %q", rec.requests[0].Prompt)
	}
	if strings.Contains(rec.requests[1].Prompt, "Research notes") {
		t.Fatalf("tasks without tools should not carry research notes")
	}
}

func TestRunToolFailureAborts(t *testing.T) {
	rec := &recordingAdapter{}
	p := studyPipeline(rec)
	p.Roles["historian"].Tools = []string{"web_search"}
	p.Tasks[0].SearchQuery = "{{ .book }}"

	search := &fakeTool{name: "web_search", err: adapter.NewError("serper", 401, errors.New("bad key"))}
	_, err := Run(context.Background(), p, RunOptions{
		Params:    map[string]string{"book": "Genesis", "language": "English"},
		OutputDir: t.TempDir(),
		Tools:     map[string]tool.Tool{"web_search": search},
	})
	if adapter.KindOf(err) != adapter.KindAuth {
		t.Fatalf("expected auth error from tool, got %v", err)
	}
	if rec.calls() != 0 {
		t.Fatalf("model must not be called after a tool failure")
	}
}

func TestRunWritesEvidence(t *testing.T) {
	evidenceDir := t.TempDir()
	res, err := Run(context.Background(), studyPipeline(&recordingAdapter{}), RunOptions{
		Params:      map[string]string{"book": "Genesis", "language": "English"},
		OutputDir:   t.TempDir(),
		EvidenceDir: evidenceDir,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.EvidenceDir == "" {
		t.Fatalf("expected evidence dir")
	}

	data, err := os.ReadFile(filepath.Join(res.EvidenceDir, "run.json"))
	if err != nil {
		t.Fatalf("read run.json: %v", err)
	}
	var run evidence.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		t.Fatalf("decode run.json: %v", err)
	}
	if run.Status != "succeeded" || run.ID != res.RunID || len(run.Order) != 4 {
		t.Fatalf("unexpected run record %+v", run)
	}
	if run.Usage == nil || run.Usage.TotalTokens != 60 {
		t.Fatalf("expected usage in run record")
	}

	for _, id := range res.Order {
		if _, err := os.Stat(filepath.Join(res.EvidenceDir, "tasks", id+".json")); err != nil {
			t.Fatalf("missing task record for %s: %v", id, err)
		}
	}
}

func TestRunRecordsFailureEvidence(t *testing.T) {
	evidenceDir := t.TempDir()
	rec := &recordingAdapter{
		respond: func(int, adapter.Request) (*adapter.Response, error) {
			return nil, adapter.NewError("recording", 503, errors.New("unavailable"))
		},
	}
	_, err := Run(context.Background(), studyPipeline(rec), RunOptions{
		Params:      map[string]string{"book": "Genesis", "language": "English"},
		OutputDir:   t.TempDir(),
		EvidenceDir: evidenceDir,
	})
	if err == nil {
		t.Fatalf("expected failure")
	}

	entries, err := os.ReadDir(evidenceDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one run dir, got %v (%v)", entries, err)
	}
	data, err := os.ReadFile(filepath.Join(evidenceDir, entries[0].Name(), "run.json"))
	if err != nil {
		t.Fatalf("read run.json: %v", err)
	}
	var run evidence.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Status != "failed" || run.FailedTask != "historical-context" {
		t.Fatalf("unexpected failure record %+v", run)
	}

	taskData, err := os.ReadFile(filepath.Join(evidenceDir, entries[0].Name(), "tasks", "historical-context.json"))
	if err != nil {
		t.Fatalf("read task record: %v", err)
	}
	var task evidence.TaskRecord
	if err := json.Unmarshal(taskData, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.ErrorKind != string(adapter.KindTransient) {
		t.Fatalf("expected transient error kind, got %q", task.ErrorKind)
	}
}

func TestRunWithMockAdapter(t *testing.T) {
	p := studyPipeline(nil)
	p.Adapters = map[string]adapter.Adapter{"mock": adapter.NewMockAdapter()}

	res, err := Run(context.Background(), p, RunOptions{
		Params:    map[string]string{"book": "Genesis", "language": "English"},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(res.Terminal.Text, "Assemble the final study guide") {
		t.Fatalf("mock should echo the prompt, got %q", res.Terminal.Text)
	}
	if res.Terminal.Adapter != "mock" || res.Terminal.Metadata["role"] != "Editor" {
		t.Fatalf("unexpected terminal result %+v", res.Terminal)
	}
}
