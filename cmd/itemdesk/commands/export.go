package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itemdesk/itemdesk/pkg/csvio"
	"github.com/itemdesk/itemdesk/pkg/records"
	"github.com/itemdesk/itemdesk/pkg/report"
)

const (
	defaultCSVName = "exported-data.csv"
	defaultPDFName = "exported-data.pdf"
)

func newExportCommand() *cobra.Command {
	var (
		out             string
		referenceLayout bool
		title           string
	)

	cmd := &cobra.Command{
		Use:   "export <csv|pdf>",
		Short: "Export all records to CSV or PDF",
		Long: `Export every record to a CSV document or a PDF report.

The destination is chosen with --out. Use "--out -" to write to stdout.
Without --out the command asks for a file name on a terminal, offering
exported-data.csv or exported-data.pdf; an empty answer accepts it and
Ctrl+D cancels. Outside a terminal the default name is used.

The PDF report paginates and clips long cells unless disabled in the
configuration. --reference-layout renders the classic single page layout
where rows past the bottom edge are lost.`,
		Example: `  # Export to a CSV file
  itemdesk export csv --out people.csv

  # Pipe a PDF report
  itemdesk export pdf --out - > report.pdf`,
		ValidArgs: []string{"csv", "pdf"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := args[0]
			defaultName := defaultCSVName
			if format == "pdf" {
				defaultName = defaultPDFName
			}

			dest, err := resolveDestination(cmd, out, cmd.Flags().Changed("out"), defaultName)
			if records.IsCancelled(err) {
				log.Info().Str("format", format).Msg("Export cancelled")
				return nil
			}
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				recs, err := a.svc.ListAll(a.ctx)
				if err != nil {
					return err
				}

				var data []byte
				pages := 0
				switch format {
				case "csv":
					data, err = csvio.ExportCSV(recs)
				case "pdf":
					var doc *report.Document
					doc, err = renderPDF(a, recs, referenceLayout, title)
					if doc != nil {
						data, pages = doc.Bytes, doc.Pages
					}
				}
				if err != nil {
					return err
				}

				if err := writeOutput(cmd, dest, data); err != nil {
					return err
				}
				a.tel.Metrics.RecordExport(format, len(recs))

				target := dest
				if target == "" {
					target = "stdout"
				}
				ev := log.Info().
					Str("format", format).
					Str("destination", target).
					Int("records", len(recs))
				if format == "pdf" {
					ev = ev.Int("pages", pages)
				}
				ev.Msg("Export finished")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", `destination file, or "-" for stdout`)
	cmd.Flags().BoolVar(&referenceLayout, "reference-layout", false, "render the single page layout without pagination or clipping")
	cmd.Flags().StringVar(&title, "title", "", "report title (pdf only)")

	return cmd
}

func renderPDF(a *app, recs []records.Record, reference bool, title string) (*report.Document, error) {
	layout := report.DefaultLayout()
	if reference {
		layout = report.ReferenceLayout()
	} else {
		layout.Paginate = a.cfg.Report.Paginate
		layout.ClipCells = a.cfg.Report.ClipCells
	}
	layout.Title = a.cfg.Report.Title
	if title != "" {
		layout.Title = title
	}

	return report.NewRenderer(layout, report.WithTelemetry(a.tel)).RenderContext(a.ctx, recs)
}
