package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zen-systems/crewforge/pkg/config"
	"github.com/zen-systems/crewforge/pkg/evidence"
	"github.com/zen-systems/crewforge/pkg/pipeline"
	"github.com/zen-systems/crewforge/pkg/present"
	"github.com/zen-systems/crewforge/pkg/server"
	"github.com/zen-systems/crewforge/pkg/studio"
	"github.com/zen-systems/crewforge/pkg/variants"
)

var (
	debugFlag bool
	modelFlag string
	logger    = zap.NewNop()
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, present.Message(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crewforge",
		Short: "Content crews: role-based prompt pipelines over hosted language models",
		Long: `crewforge runs small crews of prompt-templated roles in a fixed order.
Each role's task is one model call; later tasks receive the results of the
tasks they depend on, and the last task's text is written to a file.

Built-in crews cover Bible study guides, books, songs, flyers and newspapers.
Custom crews can be described in YAML and run with "run -f".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zcfg := zap.NewProductionConfig()
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if debugFlag {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "log every step at debug level")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "model alias or provider/model reference (e.g. fast, gemini/gemini-2.5-pro)")

	rootCmd.AddCommand(variantsCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(imageCmd())
	rootCmd.AddCommand(verifyCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func variantOptions(cfg *config.Config) variants.Options {
	return variants.Options{Temperature: cfg.Defaults.Temperature}
}

// parseSets turns repeated key=value flags into a parameter map.
func parseSets(sets []string) (map[string]string, error) {
	params := make(map[string]string, len(sets))
	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", set)
		}
		params[key] = value
	}
	return params, nil
}

func variantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the built-in crews and their fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VARIANT\tFIELDS\tDESCRIPTION")
			for _, v := range variants.Catalog() {
				fields := make([]string, 0, len(v.Fields))
				for _, f := range v.Fields {
					name := f.Name
					if f.Required {
						name += "*"
					}
					fields = append(fields, name)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", v.Name, strings.Join(fields, ", "), v.Description)
			}
			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "validate <pipeline.yaml | variant>",
		Short: "Validate a pipeline manifest or a variant's input without calling any model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			if v, err := variants.Lookup(target); err == nil {
				params, err := parseSets(sets)
				if err != nil {
					return err
				}
				job, err := v.Prepare(params, variants.Options{})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %s\n", v.Name, strings.Join(job.Pipeline.Order(), " -> "))
				return nil
			}

			p, err := pipeline.LoadManifest(target)
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pipeline manifest is valid: %s\n", strings.Join(p.Order(), " -> "))
			if params := p.RequiredParams(); len(params) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Parameters: %s\n", strings.Join(params, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "variant field as key=value (repeatable)")
	return cmd
}

func modelsCmd() *cobra.Command {
	var resolveFlag bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List providers, models and aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			aliases, err := config.LoadAliasesWithFallback()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if resolveFlag {
				fmt.Fprintln(w, "ALIAS\tTARGET")
				aliasMap := aliases.ListAliases()
				names := make([]string, 0, len(aliasMap))
				for name := range aliasMap {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "%s\t%s\n", name, aliasMap[name])
				}
				return w.Flush()
			}

			fmt.Fprintln(w, "PROVIDER\tMODELS\tSTATUS")
			for _, provider := range aliases.ListProviders() {
				status := "no key"
				if cfg.HasAdapter(provider) {
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", provider, strings.Join(aliases.GetProviderModels(provider), ", "), status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&resolveFlag, "resolve", false, "show aliases and what they resolve to")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	var outDir string
	var evidenceDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the crews as HTML forms",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Defaults.Server.Addr
			}
			if addr == "" {
				addr = "127.0.0.1:8080"
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := studio.New(ctx, cfg, studio.Options{
				ModelRef:    modelFlag,
				OutputDir:   outDir,
				EvidenceDir: evidenceDir,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			srv := server.New(st, server.Options{
				Logger:    logger,
				Variant:   variantOptions(cfg),
				AccessLog: true,
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving on http://%s (model %s)\n", addr, st.Target())
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config or 127.0.0.1:8080)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for result files")
	cmd.Flags().StringVar(&evidenceDir, "evidence", "", "write run evidence under this directory")
	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <evidence-run-dir>",
		Short: "Check an evidence bundle for missing records and altered blobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := evidence.Verify(args[0])
			if err != nil {
				return fmt.Errorf("evidence verification failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Evidence for run %s (%s, %s) is intact\n", run.ID, run.Pipeline, run.Status)
			return nil
		},
	}
}

func contextFrom(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
