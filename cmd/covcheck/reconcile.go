package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"covcheck/internal/exporter"
	"covcheck/internal/services"
	"covcheck/internal/validation"
)

// reconcileOptions are the validated flags of the reconcile command
type reconcileOptions struct {
	Targets string `json:"targets" validate:"required,workbook"`
	Bulk    string `json:"bulk" validate:"required,workbook"`
	Out     string `json:"out" validate:"required"`
	Format  string `json:"format" validate:"omitempty,oneof=xlsx csv"`
	Preview int    `json:"preview" validate:"gte=0,lte=100"`
}

func newReconcileCommand(c *cli) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Write matched bulk rows and missing target pairs",
		Example: `  covcheck reconcile --targets SD_PRD_targets.xlsx --bulk bulk-report.xlsx
  covcheck reconcile --targets plan.xlsx --bulk bulk.xlsx --out reports --format csv --preview 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("format") {
				opts.Format = c.cfg.Output.Format
			}
			if !cmd.Flags().Changed("preview") {
				opts.Preview = c.cfg.Output.PreviewRows
			}
			opts.Format = strings.ToLower(opts.Format)
			return runReconcile(cmd, c.logger, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Targets, "targets", "", "targets workbook (.xlsx), one tab per plan")
	flags.StringVar(&opts.Bulk, "bulk", "", "bulk report workbook (.xlsx) with a Sponsored Display sheet")
	flags.StringVar(&opts.Out, "out", ".", "directory the two output files are written to")
	flags.StringVar(&opts.Format, "format", "", "output format: xlsx or csv (default from config)")
	flags.IntVar(&opts.Preview, "preview", 0, "rows of each output to print (default from config)")
	_ = cmd.MarkFlagRequired("targets")
	_ = cmd.MarkFlagRequired("bulk")

	return cmd
}

func runReconcile(cmd *cobra.Command, logger *slog.Logger, opts *reconcileOptions) error {
	ctx := cmd.Context()

	if err := validation.New().Struct(opts); err != nil {
		return err
	}

	files := validation.NewFileValidator(logger)
	for _, path := range []string{opts.Targets, opts.Bulk} {
		if err := files.ValidateExcelFile(path); err != nil {
			return err
		}
	}
	if err := files.ValidateOutputDirectory(opts.Out); err != nil {
		return err
	}

	targets, err := os.Open(opts.Targets)
	if err != nil {
		return fmt.Errorf("failed to open targets workbook: %w", err)
	}
	defer targets.Close()

	bulk, err := os.Open(opts.Bulk)
	if err != nil {
		return fmt.Errorf("failed to open bulk workbook: %w", err)
	}
	defer bulk.Close()

	svc, err := services.NewCoverageService(services.CoverageServiceOptions{
		ReportsDir:  opts.Out,
		Format:      exporter.Format(opts.Format),
		PreviewRows: opts.Preview,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	out, err := svc.Run(ctx, services.RunInput{
		Targets: targets,
		Bulk:    bulk,
		Names:   services.InputNames{Targets: opts.Targets, Bulk: opts.Bulk},
		Source:  services.SourceCLI,
	})
	if err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), out)
}

func printResult(w io.Writer, out *services.RunOutput) error {
	s := out.Stats
	fmt.Fprintf(w, "Bulk sheet:   %s\n", s.BulkSheet)
	fmt.Fprintf(w, "Target tabs:  %d (%d pairs)\n", s.TargetSheets, s.TargetRows)
	fmt.Fprintf(w, "Bulk rows:    %d\n", s.BulkRows)
	fmt.Fprintf(w, "Matched rows: %d (%d duplicates dropped)\n", s.MatchedRows, s.DuplicatesDropped)
	fmt.Fprintf(w, "Missing rows: %d\n", s.MissingRows)

	for _, section := range []struct {
		title   string
		preview services.TablePreview
	}{
		{"Matched bulk rows", out.MatchedPreview},
		{"Missing combinations", out.MissingPreview},
	} {
		if len(section.preview.Rows) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (first %d of %d):\n", section.title, len(section.preview.Rows), section.preview.Total)
		if err := renderPreview(w, section.preview); err != nil {
			return err
		}
	}

	matched, missing := out.Paths()
	fmt.Fprintf(w, "\nWrote %s\nWrote %s\n", matched, missing)
	return nil
}

func renderPreview(w io.Writer, p services.TablePreview) error {
	table := tablewriter.NewTable(w)

	header := make([]any, len(p.Columns))
	for i, col := range p.Columns {
		header[i] = col
	}
	table.Header(header...)

	for _, row := range p.Rows {
		cells := make([]any, len(p.Columns))
		for i, col := range p.Columns {
			cells[i] = ""
			if v := row[col]; v != nil {
				cells[i] = *v
			}
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}

	return table.Render()
}
