package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zen-systems/crewforge/pkg/adapter"
	"github.com/zen-systems/crewforge/pkg/evidence"
	"github.com/zen-systems/crewforge/pkg/prompt"
	"github.com/zen-systems/crewforge/pkg/result"
	"github.com/zen-systems/crewforge/pkg/tool"
)

// RunOptions configures pipeline execution.
type RunOptions struct {
	Params       map[string]string
	OutputDir    string
	EvidenceDir  string
	PipelinePath string
	Tools        map[string]tool.Tool
	Logger       *zap.Logger
}

// RunContext holds the state of one run. It is created per run and
// discarded when the run ends.
type RunContext struct {
	Params  map[string]string
	Results map[string]*result.TaskResult
}

// NewRunContext copies params into a fresh run context.
func NewRunContext(params map[string]string) *RunContext {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return &RunContext{Params: copied, Results: make(map[string]*result.TaskResult)}
}

// RunResult captures the outputs of a successful run.
type RunResult struct {
	RunID       string
	Order       []string
	Results     map[string]*result.TaskResult
	Terminal    *result.TaskResult
	OutputPath  string
	Outputs     map[string]string
	Usage       adapter.Usage
	Calls       []CallUsage
	EvidenceDir string
}

// TaskError reports the task a run stopped at.
type TaskError struct {
	TaskID string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// preparedTask is a task with every parameter-derived string rendered.
type preparedTask struct {
	task        *Task
	role        *Role
	system      string
	body        string
	searchQuery string
	outputPath  string
	adapterName string
	adapter     adapter.Adapter
	model       string
	temperature *float64
}

// Run executes the pipeline's tasks in declared order. Every template is
// rendered before the first model call. The first failure stops the run and
// nothing is written.
func Run(ctx context.Context, pipeline *Pipeline, opts RunOptions) (*RunResult, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if err := pipeline.Validate(); err != nil {
		return nil, err
	}
	if len(pipeline.Adapters) == 0 {
		return nil, fmt.Errorf("no adapters configured")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := NewRunContext(opts.Params)
	prepared, err := prepare(pipeline, rc.Params, opts.OutputDir)
	if err != nil {
		return nil, err
	}

	runID := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
	logger = logger.With(zap.String("run_id", runID), zap.String("pipeline", pipeline.Name))

	writer, runRecord, err := startEvidence(opts, pipeline, rc.Params, runID)
	if err != nil {
		return nil, err
	}

	usage := &usageTracker{}
	logger.Info("run started", zap.Int("tasks", len(prepared)))

	for _, pt := range prepared {
		res, record, err := runTask(ctx, rc, pt, opts.Tools, logger)
		if res != nil {
			usage.record(pt.task.ID, pt.adapterName, pt.model, res.usage)
		}
		if writer != nil && record != nil {
			if writeErr := writer.recordTask(record); writeErr != nil {
				logger.Warn("failed to write task evidence", zap.String("task", pt.task.ID), zap.Error(writeErr))
			}
		}
		if err != nil {
			taskErr := &TaskError{TaskID: pt.task.ID, Err: err}
			logger.Error("run failed", zap.String("task", pt.task.ID), zap.Error(err))
			if writer != nil {
				runRecord.Status = "failed"
				runRecord.FailedTask = pt.task.ID
				runRecord.Error = err.Error()
				total := usage.total
				runRecord.Usage = &total
				if writeErr := writer.WriteRun(*runRecord); writeErr != nil {
					logger.Warn("failed to write run evidence", zap.Error(writeErr))
				}
			}
			return nil, taskErr
		}
		rc.Results[pt.task.ID] = res.result
	}

	out := &RunResult{
		RunID:   runID,
		Order:   pipeline.Order(),
		Results: rc.Results,
		Outputs: make(map[string]string),
		Usage:   usage.total,
		Calls:   usage.calls,
	}
	out.Terminal = rc.Results[pipeline.Terminal().ID]

	for _, pt := range prepared {
		if pt.outputPath == "" {
			continue
		}
		if err := WriteOutput(pt.outputPath, rc.Results[pt.task.ID].Bytes()); err != nil {
			return nil, &TaskError{TaskID: pt.task.ID, Err: err}
		}
		out.Outputs[pt.task.ID] = pt.outputPath
		logger.Info("output written", zap.String("task", pt.task.ID), zap.String("path", pt.outputPath))
	}
	out.OutputPath = out.Outputs[pipeline.Terminal().ID]

	if writer != nil {
		runRecord.Status = "succeeded"
		runRecord.OutputPath = out.OutputPath
		total := usage.total
		runRecord.Usage = &total
		if err := writer.WriteRun(*runRecord); err != nil {
			return nil, err
		}
		out.EvidenceDir = writer.RunDir()
	}

	logger.Info("run finished",
		zap.String("output", out.OutputPath),
		zap.Int("total_tokens", out.Usage.TotalTokens),
	)
	return out, nil
}

func prepare(pipeline *Pipeline, params map[string]string, outputDir string) ([]*preparedTask, error) {
	prepared := make([]*preparedTask, 0, len(pipeline.Tasks))
	for _, name := range pipeline.Inputs {
		if _, ok := params[name]; !ok {
			return nil, &prompt.MissingParameterError{Name: name}
		}
	}

	for _, task := range pipeline.Tasks {
		role := pipeline.Roles[task.Role]
		pt := &preparedTask{task: task, role: role}

		rendered, err := task.Template.Render(params)
		if err != nil {
			return nil, &TaskError{TaskID: task.ID, Err: err}
		}
		pt.body = rendered.String()

		if pt.system, err = role.SystemPrompt(params); err != nil {
			return nil, &TaskError{TaskID: task.ID, Err: err}
		}

		if task.SearchQuery != "" {
			if pt.searchQuery, err = prompt.RenderString(task.SearchQuery, params); err != nil {
				return nil, &TaskError{TaskID: task.ID, Err: fmt.Errorf("search query: %w", err)}
			}
		}

		if task.OutputPath != "" {
			name, err := prompt.RenderString(task.OutputPath, params)
			if err != nil {
				return nil, &TaskError{TaskID: task.ID, Err: fmt.Errorf("output path: %w", err)}
			}
			if pt.outputPath, err = ResolveOutputPath(outputDir, name); err != nil {
				return nil, &TaskError{TaskID: task.ID, Err: err}
			}
		}

		if err := bindModel(pipeline, pt); err != nil {
			return nil, &TaskError{TaskID: task.ID, Err: err}
		}
		prepared = append(prepared, pt)
	}
	return prepared, nil
}

// bindModel picks adapter, model and temperature: role first, then the
// pipeline defaults, then the only configured adapter.
func bindModel(pipeline *Pipeline, pt *preparedTask) error {
	adapters := pipeline.Adapters

	adapterName := pt.role.Adapter
	if adapterName == "" {
		adapterName = pipeline.DefaultAdapter
	}
	if adapterName == "" {
		adapterName = pickSingleAdapter(adapters)
	}
	impl, ok := adapters[adapterName]
	if !ok {
		return fmt.Errorf("adapter %q not found", adapterName)
	}

	model := pt.role.Model
	if model == "" {
		model = pipeline.DefaultModel
	}
	if model == "" {
		if models := impl.Models(); len(models) > 0 {
			model = models[0]
		}
	}
	if model == "" {
		return fmt.Errorf("model not specified for task %s", pt.task.ID)
	}

	temperature := pt.role.Temperature
	if temperature == nil {
		temperature = pipeline.Temperature
	}

	pt.adapterName = adapterName
	pt.adapter = impl
	pt.model = model
	pt.temperature = temperature
	return nil
}

type taskOutcome struct {
	result *result.TaskResult
	usage  *adapter.Usage
}

func runTask(
	ctx context.Context,
	rc *RunContext,
	pt *preparedTask,
	tools map[string]tool.Tool,
	logger *zap.Logger,
) (*taskOutcome, *evidence.TaskRecord, error) {
	start := time.Now()
	task := pt.task
	record := &evidence.TaskRecord{
		ID:        task.ID,
		Role:      pt.role.Name,
		DependsOn: task.DependsOn,
		Adapter:   pt.adapterName,
		Model:     pt.model,
	}
	fail := func(err error) (*taskOutcome, *evidence.TaskRecord, error) {
		record.Error = err.Error()
		record.ErrorKind = string(adapter.KindOf(err))
		record.DurationMillis = time.Since(start).Milliseconds()
		return nil, record, err
	}

	logger.Info("task started",
		zap.String("task", task.ID),
		zap.String("role", pt.role.Name),
		zap.String("adapter", pt.adapterName),
		zap.String("model", pt.model),
	)

	var sb strings.Builder
	sb.WriteString(pt.body)

	if pt.searchQuery != "" && len(pt.role.Tools) > 0 {
		notes, calls, err := runTools(ctx, pt, tools, logger)
		record.ToolCalls = calls
		if err != nil {
			return fail(err)
		}
		if notes != "" {
			sb.WriteString("\n\nResearch notes:\n")
			sb.WriteString(notes)
		}
	}

	if len(task.DependsOn) > 0 {
		sb.WriteString("\n\nThis is the context you're working with:\n")
		for i, dep := range task.DependsOn {
			prior, ok := rc.Results[dep]
			if !ok {
				return fail(fmt.Errorf("dependency %s has no result", dep))
			}
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(prior.Text)
		}
	}
	promptText := sb.String()
	record.Prompt = promptText

	resp, err := pt.adapter.Generate(ctx, adapter.Request{
		Model:       pt.model,
		System:      pt.system,
		Prompt:      promptText,
		Temperature: pt.temperature,
	})
	if err != nil {
		return fail(fmt.Errorf("adapter %s: %w", pt.adapterName, err))
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return fail(adapter.Malformed(pt.adapterName, "empty response for task %s", task.ID))
	}

	model := resp.Model
	if model == "" {
		model = pt.model
	}
	res := result.New(task.ID, resp.Text, pt.adapterName, model, promptText).
		WithMetadata("role", pt.role.Name)

	record.Model = model
	record.Output = resp.Text
	record.OutputHash = res.Hash
	record.Usage = resp.Usage
	record.DurationMillis = time.Since(start).Milliseconds()

	logger.Info("task finished",
		zap.String("task", task.ID),
		zap.Duration("duration", time.Since(start)),
		zap.Int("chars", len(resp.Text)),
	)
	return &taskOutcome{result: res, usage: resp.Usage}, record, nil
}

// runTools calls each of the role's tools once with the task's search
// query, in the role's declared order.
func runTools(ctx context.Context, pt *preparedTask, tools map[string]tool.Tool, logger *zap.Logger) (string, []evidence.ToolRecord, error) {
	var sections []string
	var calls []evidence.ToolRecord
	for _, name := range pt.role.Tools {
		impl, ok := tools[name]
		if !ok {
			logger.Warn("tool not configured, skipping", zap.String("task", pt.task.ID), zap.String("tool", name))
			continue
		}

		start := time.Now()
		out, err := impl.Run(ctx, pt.searchQuery)
		call := evidence.ToolRecord{Name: name, Query: pt.searchQuery, DurationMillis: time.Since(start).Milliseconds()}
		if err != nil {
			call.Error = err.Error()
			calls = append(calls, call)
			return "", calls, fmt.Errorf("tool %s: %w", name, err)
		}
		calls = append(calls, call)
		sections = append(sections, fmt.Sprintf("### %s\n%s", name, strings.TrimSpace(out)))
	}
	return strings.Join(sections, "\n\n"), calls, nil
}

func pickSingleAdapter(adapters map[string]adapter.Adapter) string {
	if len(adapters) != 1 {
		return ""
	}
	for key := range adapters {
		return key
	}
	return ""
}

type evidenceWriter struct {
	*evidence.Writer
}

func startEvidence(opts RunOptions, pipeline *Pipeline, params map[string]string, runID string) (*evidenceWriter, *evidence.RunRecord, error) {
	if opts.EvidenceDir == "" {
		return nil, nil, nil
	}
	w, err := evidence.NewWriter(opts.EvidenceDir, runID)
	if err != nil {
		return nil, nil, err
	}
	record := &evidence.RunRecord{
		ID:           runID,
		Timestamp:    time.Now().UTC(),
		Pipeline:     pipeline.Name,
		PipelineFile: opts.PipelinePath,
		Params:       params,
		ParamsHash:   evidence.HashParams(params),
		Order:        pipeline.Order(),
		Status:       "running",
		ToolVersions: map[string]string{"go": runtime.Version()},
	}
	if err := w.WriteRun(*record); err != nil {
		return nil, nil, err
	}
	return &evidenceWriter{w}, record, nil
}

// recordTask moves long prompts and outputs into blobs before writing the
// task record.
func (w *evidenceWriter) recordTask(record *evidence.TaskRecord) error {
	var err error
	if record.Prompt != "" {
		record.Prompt, record.PromptRef, record.PromptHash, err = w.Inline("prompt", record.Prompt)
		if err != nil {
			return err
		}
	}
	if record.Output != "" {
		record.Output, record.OutputRef, _, err = w.Inline("output", record.Output)
		if err != nil {
			return err
		}
	}
	return w.WriteTask(*record)
}

// IsTaskError reports whether err stopped a run at a specific task and
// returns that task's id.
func IsTaskError(err error) (string, bool) {
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		return taskErr.TaskID, true
	}
	return "", false
}
