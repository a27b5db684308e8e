// Package studio wires configuration into runnable crews: it builds the
// model adapters and tools, binds the selected model and runs variants.
package studio

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zen-systems/crewforge/pkg/adapter"
	"github.com/zen-systems/crewforge/pkg/config"
	"github.com/zen-systems/crewforge/pkg/pipeline"
	"github.com/zen-systems/crewforge/pkg/tool"
	"github.com/zen-systems/crewforge/pkg/variants"
)

// ImageFileName is the file a flyer image is written to.
const ImageFileName = "flyer_image.png"

// adapterPreference is the order in which a default adapter is picked when
// neither a flag nor config.yaml names one.
var adapterPreference = []string{"google", "openai", "anthropic", "deepseek", "openrouter"}

// Options configures a Studio. Adapters, Tools and Images replace what
// would otherwise be built from the configuration.
type Options struct {
	ModelRef    string
	OutputDir   string
	EvidenceDir string
	SkipImages  bool
	Logger      *zap.Logger

	Adapters map[string]adapter.Adapter
	Tools    map[string]tool.Tool
	Images   tool.ImageGenerator
}

// Studio runs crews against the configured providers.
type Studio struct {
	cfg         *config.Config
	adapters    map[string]adapter.Adapter
	target      config.Target
	tools       map[string]tool.Tool
	images      tool.ImageGenerator
	project     string
	outputDir   string
	evidenceDir string
	skipImages  bool
	logger      *zap.Logger
}

// Outcome is the result of one variant run.
type Outcome struct {
	Result    *pipeline.RunResult
	Image     []byte
	ImagePath string
	ImageErr  error
}

// New builds adapters and tools from cfg and resolves the model to use.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Studio, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	adapters := opts.Adapters
	if adapters == nil {
		var err error
		if adapters, err = CreateAdapters(ctx, cfg); err != nil {
			return nil, err
		}
	}

	target, err := SelectTarget(cfg, opts.ModelRef, adapters)
	if err != nil {
		return nil, err
	}
	if _, ok := adapters[target.Adapter]; !ok {
		if err := cfg.RequireAdapter(target.Adapter); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("adapter %q is not available", target.Adapter)
	}

	tools := opts.Tools
	if tools == nil {
		tools = CreateTools(cfg, logger)
	}

	images := opts.Images
	if images == nil {
		img := cfg.Defaults.Image
		images = tool.NewImagenGenerator(img.Model, img.Location, img.AspectRatio)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.Defaults.OutputDir
	}
	evidenceDir := opts.EvidenceDir
	if evidenceDir == "" {
		evidenceDir = cfg.Defaults.EvidenceDir
	}

	logger.Debug("studio ready",
		zap.String("adapter", target.Adapter),
		zap.String("model", target.Model),
		zap.Int("tools", len(tools)),
	)

	return &Studio{
		cfg:         cfg,
		adapters:    adapters,
		target:      target,
		tools:       tools,
		images:      images,
		project:     cfg.GoogleCloudProject,
		outputDir:   outputDir,
		evidenceDir: evidenceDir,
		skipImages:  opts.SkipImages,
		logger:      logger,
	}, nil
}

// Target returns the adapter and model every task is bound to unless its
// role says otherwise.
func (s *Studio) Target() config.Target {
	return s.target
}

// OutputDir returns the directory results are written to.
func (s *Studio) OutputDir() string {
	return s.outputDir
}

// Run executes a prepared variant job. For variants with an image task the
// image is generated after the text run; an image failure is reported in
// the outcome and does not undo the text result.
func (s *Studio) Run(ctx context.Context, job *variants.Job) (*Outcome, error) {
	res, err := s.RunPipeline(ctx, job.Pipeline, job.Params, "variant:"+job.Variant.Name)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Result: res}

	if job.Variant.ImageTask == "" || s.skipImages {
		return out, nil
	}
	imagePrompt, ok := res.Results[job.Variant.ImageTask]
	if !ok {
		return out, nil
	}

	aspect := s.cfg.Defaults.Image.AspectRatio
	if aspect == "" {
		aspect = variants.AspectRatioFor(job.Params["flyer_type"])
	}
	data, err := s.GenerateImage(ctx, imagePrompt.Text, aspect)
	if err != nil {
		s.logger.Warn("image generation failed", zap.Error(err))
		out.ImageErr = err
		return out, nil
	}
	out.Image = data

	path, err := pipeline.ResolveOutputPath(s.outputDir, ImageFileName)
	if err == nil {
		err = pipeline.WriteOutput(path, data)
	}
	if err != nil {
		out.ImageErr = fmt.Errorf("write image: %w", err)
		return out, nil
	}
	out.ImagePath = path
	s.logger.Info("image written", zap.String("path", path), zap.Int("bytes", len(data)))
	return out, nil
}

// RunPipeline binds the studio's adapters to p and runs it.
func (s *Studio) RunPipeline(ctx context.Context, p *pipeline.Pipeline, params map[string]string, source string) (*pipeline.RunResult, error) {
	p.Adapters = s.adapters
	if p.DefaultAdapter == "" {
		p.DefaultAdapter = s.target.Adapter
		if p.DefaultModel == "" {
			p.DefaultModel = s.target.Model
		}
	}
	if p.Temperature == nil {
		p.Temperature = s.cfg.Defaults.Temperature
	}

	return pipeline.Run(ctx, p, pipeline.RunOptions{
		Params:       params,
		OutputDir:    s.outputDir,
		EvidenceDir:  s.evidenceDir,
		PipelinePath: source,
		Tools:        s.tools,
		Logger:       s.logger,
	})
}

// GenerateImage renders prompt with the image model. An empty aspect ratio
// keeps the generator's own.
func (s *Studio) GenerateImage(ctx context.Context, prompt, aspect string) ([]byte, error) {
	if s.project == "" {
		return nil, fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT is not set", config.ErrMissingCredentials)
	}
	gen := s.images
	if imagen, ok := gen.(*tool.ImagenGenerator); ok && aspect != "" && aspect != imagen.AspectRatio {
		copied := *imagen
		copied.AspectRatio = aspect
		gen = &copied
	}
	return gen.GenerateImage(ctx, prompt, s.project)
}
