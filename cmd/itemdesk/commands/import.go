package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itemdesk/itemdesk/pkg/csvio"
)

func newImportCommand() *cobra.Command {
	var (
		strict   bool
		watchDir string
	)

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import records from CSV",
		Long: `Import records from a CSV document whose first line is a header.

Columns named "name" and "description" are matched by header; otherwise the
first two columns other than "id" are used in order. Ids in the input are
ignored and new ones are assigned.

Rows with too few or too many fields are repaired with a warning, or
rejected with --strict. Malformed quoting rejects the whole document before
anything is inserted.

With --watch the command keeps running and imports every CSV file dropped
into the directory, moving it to processed/ or failed/ afterwards.`,
		Example: `  # Import a file
  itemdesk import people.csv

  # Import from stdin, rejecting ragged rows
  cat people.csv | itemdesk import - --strict

  # Watch an inbox directory
  itemdesk import --watch ./inbox`,
		Args: func(cmd *cobra.Command, args []string) error {
			if watchDir != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				importer := csvio.NewImporter(a.svc,
					csvio.WithStrict(strict),
					csvio.WithTelemetry(a.tel),
				)

				if watchDir != "" {
					return watchInbox(cmd, a, importer, watchDir)
				}
				return importOne(cmd, a, importer, args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "reject rows whose field count differs from the header")
	cmd.Flags().StringVar(&watchDir, "watch", "", "watch a directory and import every CSV file dropped into it")

	return cmd
}

func importOne(cmd *cobra.Command, a *app, importer *csvio.Importer, source string) error {
	var r io.Reader = cmd.InOrStdin()
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", source, err)
		}
		defer f.Close()
		r = f
	}

	res, err := importer.Import(a.ctx, r)
	if err != nil {
		if res != nil && res.Inserted > 0 {
			log.Warn().
				Str("batch", res.BatchID).
				Int("inserted", res.Inserted).
				Msg("Import stopped after inserting some rows")
		}
		return err
	}

	// Refresh the snapshot from the store.
	all, err := a.svc.ListAll(a.ctx)
	if err != nil {
		return err
	}

	log.Info().
		Str("source", source).
		Str("batch", res.BatchID).
		Int("inserted", res.Inserted).
		Int("skipped", res.Skipped).
		Int("warnings", len(res.Warnings)).
		Msg("Import finished")

	if jsonOutput {
		return printJSON(cmd, struct {
			BatchID  string   `json:"batch_id"`
			Inserted int      `json:"inserted"`
			Skipped  int      `json:"skipped"`
			Warnings []string `json:"warnings"`
			Total    int      `json:"total"`
		}{res.BatchID, res.Inserted, res.Skipped, warningStrings(res.Warnings), len(all)})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records (%d skipped); %d records in store\n",
		res.Inserted, res.Skipped, len(all))
	return nil
}

func warningStrings(ws []csvio.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.String())
	}
	return out
}

func watchInbox(cmd *cobra.Command, a *app, importer *csvio.Importer, dir string) error {
	log.Info().Str("dir", dir).Msg("Watching inbox, press Ctrl+C to stop")

	w := csvio.NewWatcher(dir, importer,
		csvio.WithWatcherLogger(a.tel.Logger),
		csvio.WithResultFunc(func(path string, res *csvio.ImportResult, err error) {
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: failed: %v\n", path, err)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d records\n", path, res.Inserted)
		}),
	)
	return w.Run(a.ctx)
}
