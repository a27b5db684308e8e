package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/zen-systems/crewforge/pkg/export"
	"github.com/zen-systems/crewforge/pkg/pipeline"
	"github.com/zen-systems/crewforge/pkg/studio"
	"github.com/zen-systems/crewforge/pkg/tool"
	"github.com/zen-systems/crewforge/pkg/variants"
)

func runCmd() *cobra.Command {
	var pipelineFile string
	var sets []string
	var outDir string
	var evidenceDir string
	var formats []string
	var noImage bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "run [variant]",
		Short: "Run a built-in crew or a pipeline manifest",
		Long: `Runs a built-in crew with its fields given as --set key=value, or a
pipeline manifest with -f. The last task's text is written to the output
directory and printed.

Examples:
  crewforge run bible-study --set book=Genesis --set language=English
  crewforge run newspaper --set scope=Local --set location=Hamburg --set "topics=Sports, Technology"
  crewforge run -f crews/sermon.yaml --set passage="Luke 15"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pipelineFile == "" && len(args) == 0 {
				return fmt.Errorf("name a variant or pass a pipeline manifest with -f (see `crewforge variants`)")
			}
			if pipelineFile != "" && len(args) > 0 {
				return fmt.Errorf("pass either a variant or -f, not both")
			}

			params, err := parseSets(sets)
			if err != nil {
				return err
			}
			exportFormats := make([]export.Format, 0, len(formats))
			for _, name := range formats {
				f, err := export.ParseFormat(name)
				if err != nil {
					return err
				}
				exportFormats = append(exportFormats, f)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var job *variants.Job
			var manifest *pipeline.Pipeline
			if pipelineFile != "" {
				if manifest, err = pipeline.LoadManifest(pipelineFile); err != nil {
					return err
				}
				if err := manifest.Validate(); err != nil {
					return err
				}
			} else {
				v, err := variants.Lookup(args[0])
				if err != nil {
					return err
				}
				if job, err = v.Prepare(params, variantOptions(cfg)); err != nil {
					return err
				}
			}

			ctx := contextFrom(cmd)
			st, err := studio.New(ctx, cfg, studio.Options{
				ModelRef:    modelFlag,
				OutputDir:   outDir,
				EvidenceDir: evidenceDir,
				SkipImages:  noImage,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Running with %s...\n", st.Target())

			var res *pipeline.RunResult
			if job != nil {
				out, err := st.Run(ctx, job)
				if err != nil {
					return err
				}
				res = out.Result
				if out.ImagePath != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Image: %s\n", out.ImagePath)
				}
				if out.ImageErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Image skipped: %v\n", out.ImageErr)
				}
			} else {
				if res, err = st.RunPipeline(ctx, manifest, params, pipelineFile); err != nil {
					return err
				}
			}

			if err := display(cmd.OutOrStdout(), res.Terminal.Text, raw); err != nil {
				return err
			}

			for _, f := range exportFormats {
				path, err := exportResult(res, st.OutputDir(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported: %s\n", path)
			}

			if res.OutputPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved: %s\n", res.OutputPath)
			}
			if res.EvidenceDir != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Evidence: %s\n", res.EvidenceDir)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Tokens: %d\n", res.Usage.TotalTokens)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pipelineFile, "file", "f", "", "pipeline manifest path")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field or parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for result files (default from config or the working directory)")
	cmd.Flags().StringVar(&evidenceDir, "evidence", "", "write run evidence under this directory")
	cmd.Flags().StringSliceVar(&formats, "export", nil, "also export the result as md, txt, html, pdf or docx")
	cmd.Flags().BoolVar(&noImage, "no-image", false, "skip image generation for the flyer crew")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the result without terminal formatting")
	return cmd
}

// display prints the in-memory result. Markdown is rendered for terminals.
func display(w io.Writer, text string, raw bool) error {
	if !raw && isTerminal(w) {
		rendered, err := export.Render(text, 100, "")
		if err == nil {
			_, err = io.WriteString(w, rendered)
			return err
		}
		logger.Debug("markdown rendering failed")
	}
	_, err := io.WriteString(w, strings.TrimRight(text, "\n")+"\n")
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func exportResult(res *pipeline.RunResult, outDir string, f export.Format) (string, error) {
	name := "result.md"
	if res.OutputPath != "" {
		name = filepath.Base(res.OutputPath)
	}
	data, err := export.Export(res.Terminal.Text, f)
	if err != nil {
		return "", err
	}
	path, err := pipeline.ResolveOutputPath(outDir, f.FileName(name))
	if err != nil {
		return "", err
	}
	if f == export.FormatMarkdown && path == res.OutputPath {
		return path, nil
	}
	return path, pipeline.WriteOutput(path, data)
}

func exportCmd() *cobra.Command {
	var formatFlag string
	var outFlag string

	cmd := &cobra.Command{
		Use:   "export <result.md>",
		Short: "Convert a Markdown result to txt, html, pdf or docx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			data, err := pipeline.ReadOutput(args[0])
			if err != nil {
				return err
			}
			out, err := export.Export(data, f)
			if err != nil {
				return err
			}

			target := outFlag
			if target == "" {
				target = f.FileName(args[0])
			}
			if target == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := pipeline.WriteOutput(target, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported: %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "pdf", "md, txt, html, pdf or docx")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "output file, - for stdout (default: input name with the new extension)")
	return cmd
}

func imageCmd() *cobra.Command {
	var aspect string
	var outFlag string

	cmd := &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate one image with Imagen on Vertex AI",
		Long: `Generates a single image for the prompt. Requires GOOGLE_CLOUD_PROJECT and
Application Default Credentials. The image is center-cropped to the aspect
ratio and saved as PNG.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if aspect != "" {
				if _, _, err := tool.ParseAspectRatio(aspect); err != nil {
					return err
				}
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := contextFrom(cmd)
			modelRef := modelFlag
			if modelRef == "" {
				modelRef = "offline"
			}
			st, err := studio.New(ctx, cfg, studio.Options{ModelRef: modelRef, Logger: logger})
			if err != nil {
				return err
			}
			data, err := st.GenerateImage(ctx, args[0], aspect)
			if err != nil {
				return err
			}
			if err := pipeline.WriteOutput(outFlag, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Image: %s\n", outFlag)
			return nil
		},
	}
	cmd.Flags().StringVar(&aspect, "aspect", "", "aspect ratio such as 1:1, 3:4 or 16:9 (default from config)")
	cmd.Flags().StringVarP(&outFlag, "out", "o", studio.ImageFileName, "output PNG file")
	return cmd
}
