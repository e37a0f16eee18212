package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/lasrgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) *ExitError {
	return &ExitError{Code: 2, Message: err.Error()}
}

const longHelp = `lasr builds point-cloud processing pipelines and runs them on a lasR engine.

With only a pipeline file the engine is asked how it would run the pipeline
(streamable, buffer, parallelism). With input files or directories the
pipeline is run over them and a .las with the result is written.

Pipeline files are engine documents (.json) or HCL pipeline files (.hcl).
Settings may also come from a YAML file given with --config; flags win.`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		cfg        *app.Config
		flags      app.Config
		configPath string
	)

	cmd := &cobra.Command{
		Use:           "lasr [flags] <pipeline.json|pipeline.hcl> [inputs...]",
		Short:         "Inspect or run lasR point-cloud pipelines",
		Long:          longHelp,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, positional []string) error {
			if len(positional) == 0 {
				slog.Debug("No pipeline path provided, printing usage and exiting.")
				return cmd.Usage()
			}

			base := app.Config{}
			if configPath != "" {
				loaded, err := app.LoadConfigFile(configPath)
				if err != nil {
					return usageError(err)
				}
				base = loaded
			}

			fs := cmd.Flags()
			if fs.Changed("engine-bin") || fs.Changed("engine-url") {
				base.EngineBin, base.EngineURL = flags.EngineBin, flags.EngineURL
			}
			if fs.Changed("engine-namespace") {
				base.EngineNamespace = flags.EngineNamespace
			}
			if fs.Changed("strategy") {
				base.Strategy = strings.ToLower(flags.Strategy)
			}
			if fs.Changed("ncores") {
				base.NCores = flags.NCores
			}
			if fs.Changed("output-dir") {
				base.OutputDir = flags.OutputDir
			}
			if fs.Changed("config-dir") {
				base.ConfigDir = flags.ConfigDir
			}
			if fs.Changed("log-format") || base.LogFormat == "" {
				base.LogFormat = flags.LogFormat
			}
			if fs.Changed("log-level") || base.LogLevel == "" {
				base.LogLevel = flags.LogLevel
			}
			if fs.Changed("healthcheck-port") {
				base.HealthcheckPort = flags.HealthcheckPort
			}

			base.PipelinePath = positional[0]
			base.Inputs = positional[1:]
			slog.Debug("Pipeline path determined.", "path", base.PipelinePath, "inputs", len(base.Inputs))

			c, err := app.NewConfig(base)
			if err != nil {
				return usageError(err)
			}
			cfg = c
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML file with default settings.")
	f.StringVar(&flags.EngineBin, "engine-bin", "", "Engine executable, run as '<bin> process|info <document.json>'.")
	f.StringVar(&flags.EngineURL, "engine-url", "", "URL of a socket.io engine service. Excludes --engine-bin.")
	f.StringVar(&flags.EngineNamespace, "engine-namespace", "", "socket.io namespace of the engine service.")
	f.StringVar(&flags.Strategy, "strategy", "", "Parallel strategy: sequential, concurrent-points, concurrent-files or nested.")
	f.IntSliceVar(&flags.NCores, "ncores", nil, "Cores for the strategy; nested takes two values, e.g. --ncores 2,4.")
	f.StringVar(&flags.OutputDir, "output-dir", "", "Directory for the .las written when processing. Defaults to the temp directory.")
	f.StringVar(&flags.ConfigDir, "config-dir", "", "Directory where engine documents are kept. Defaults to the temp directory.")
	f.StringVar(&flags.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	f.StringVar(&flags.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.IntVar(&flags.HealthcheckPort, "healthcheck-port", 0, "Port for the /health and /metrics server. 0 is disabled.")

	if err := cmd.Execute(); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			return nil, false, exitErr
		}
		return nil, false, usageError(err)
	}
	if cfg == nil {
		// Help or usage was printed.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
