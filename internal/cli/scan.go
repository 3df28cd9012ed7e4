package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greentic-ai/cards2flow/internal/emit"
	"github.com/greentic-ai/cards2flow/internal/ir"
	"github.com/greentic-ai/cards2flow/internal/scan"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	CardsDir    string
	GroupBy     string
	DefaultFlow string
	Strict      bool
}

// NewScanCommand creates the scan command. It runs resolution and grouping
// only and writes nothing; the manifest goes to stdout.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan card documents and print the resolved manifest",
		Long: `Scan loads and classifies card JSON files, resolves each card's identity
and workflow assignment, and prints the resulting manifest without writing
any files. Useful for inspecting how metadata resolves before generating.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CardsDir, "cards", "", "directory of card JSON files")
	cmd.Flags().StringVar(&opts.GroupBy, "group-by", "", "flow grouping strategy (folder|flow-field)")
	cmd.Flags().StringVar(&opts.DefaultFlow, "default-flow", "", "default flow name when no other rule applies")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "escalate warnings to fatal errors")
	_ = cmd.MarkFlagRequired("cards")

	return cmd
}

func runScan(opts *ScanOptions, cmd *cobra.Command) error {
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

	result, collector, err := scan.Scan(cmd.Context(), scan.Config{
		CardsDir:    opts.CardsDir,
		GroupBy:     groupBy,
		DefaultFlow: opts.DefaultFlow,
		Strict:      opts.Strict,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	formatter.VerboseLog("Scanned %d card(s) into %d flow(s)", result.CardsTotal, len(result.Groups))

	if fatal := collector.Fatal(opts.Strict); len(fatal) > 0 {
		msg := fmt.Sprintf("scan found %d fatal diagnostic(s)", len(fatal))
		_ = formatter.Error(ErrCodeGenerate, msg, fatal)
		return NewExitError(ExitFailure, msg)
	}

	writer := &emit.ManifestWriter{}
	manifest := writer.Build(
		ir.InputInfo{
			CardsDir:    opts.CardsDir,
			GroupBy:     string(groupBy),
			DefaultFlow: opts.DefaultFlow,
			Strict:      opts.Strict,
		},
		result.Groups,
		collector.ManifestWarnings(),
		ir.RunDiagnostics{
			WorkspaceRoot:  opts.CardsDir,
			FlowPaths:      []string{},
			CardsProcessed: result.CardsTotal,
			Flows:          scan.Summaries(result.Groups),
			WarningsCount:  collector.Len(),
		},
	)

	if formatter.Format == "json" {
		return formatter.Success(manifest)
	}
	Summarize(formatter.Writer, manifest.Diagnostics, manifest.Warnings)
	return nil
}
