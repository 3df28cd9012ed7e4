package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/greentic-ai/cards2flow/internal/pack"
	"github.com/greentic-ai/cards2flow/internal/scan"
	"github.com/greentic-ai/cards2flow/internal/workspace"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	CardsDir    string
	OutDir      string
	Name        string
	GroupBy     string
	DefaultFlow string
	Strict      bool
	Pack        bool
	PackBin     string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a flow workspace from a directory of card documents",
		Long: `Generate scans card JSON files, groups them into flows, builds the
routing graph for each flow, and writes the workspace: card assets, flow
files with a marker-delimited generated region, a README listing, and the
run manifest. With --pack the downstream packaging tool is invoked on the
result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CardsDir, "cards", "", "directory of card JSON files")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "output workspace directory")
	cmd.Flags().StringVar(&opts.Name, "name", "", "pack and dist artifact name")
	cmd.Flags().StringVar(&opts.GroupBy, "group-by", "", "flow grouping strategy (folder|flow-field)")
	cmd.Flags().StringVar(&opts.DefaultFlow, "default-flow", "", "default flow name when no other rule applies")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "escalate warnings to fatal errors")
	cmd.Flags().BoolVar(&opts.Pack, "pack", false, "run the packaging tool after generation")
	cmd.Flags().StringVar(&opts.PackBin, "pack-bin", "", "path to the packaging binary (implies --pack)")
	_ = cmd.MarkFlagRequired("cards")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	groupBy, err := parseGroupBy(opts.GroupBy)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	var packer pack.Packer
	if opts.Pack || opts.PackBin != "" {
		bin, err := pack.ResolveBin(opts.PackBin)
		if err != nil {
			_ = formatter.Error(ErrCodePack, err.Error(), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
		packer = &pack.ExecPacker{Bin: bin, Logger: pipelineLogger(opts.Verbose)}
	}

	result, err := workspace.Generate(cmd.Context(), workspace.Options{
		CardsDir:    opts.CardsDir,
		OutDir:      opts.OutDir,
		Name:        opts.Name,
		GroupBy:     groupBy,
		DefaultFlow: opts.DefaultFlow,
		Strict:      opts.Strict,
		Packer:      packer,
		Logger:      pipelineLogger(opts.Verbose),
	})
	if err != nil {
		var fatal *workspace.FatalError
		if errors.As(err, &fatal) {
			msg := fmt.Sprintf("generation aborted with %d fatal diagnostic(s); no files written", len(fatal.Diags))
			_ = formatter.Error(ErrCodeGenerate, msg, fatal.Diags)
			return NewExitError(ExitFailure, msg)
		}
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(result.Manifest)
	}
	Summarize(formatter.Writer, result.Manifest.Diagnostics, result.Manifest.Warnings)
	return nil
}

// parseGroupBy validates the grouping flag. Empty means the folder fallback
// stays inactive.
func parseGroupBy(value string) (scan.GroupBy, error) {
	switch value {
	case "":
		return "", nil
	case string(scan.GroupByFolder):
		return scan.GroupByFolder, nil
	case string(scan.GroupByFlowField):
		return scan.GroupByFlowField, nil
	default:
		return "", fmt.Errorf("invalid group-by %q: must be %q or %q",
			value, scan.GroupByFolder, scan.GroupByFlowField)
	}
}

// pipelineLogger returns a debug logger on stderr under --verbose and a
// discard logger otherwise.
func pipelineLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
