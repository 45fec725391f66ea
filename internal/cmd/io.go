package cmd

import (
	"fmt"

	"github.com/example/reviewbot/internal/config"
	"github.com/example/reviewbot/internal/excel"
	"github.com/spf13/cobra"
)

func newImportCmd(cfg *config.Config, app *App) *cobra.Command {
	var (
		sheet    string
		startRow int
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import missed words from an xlsx or csv file",
		Long: `Record every row of the file as a missed word of the active course.

Columns: A word, B meaning, C context, D part of speech, E exam source,
F difficulty, G unit. The first row is a header.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importCfg := excel.DefaultImportConfig()
			importCfg.FilePath = args[0]
			importCfg.StartRow = startRow
			if sheet != "" {
				importCfg.SheetName = sheet
			}

			result, err := excel.ImportMissedWords(app.Store, cfg.Course, importCfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d rows: %d added, %d merged, %d skipped\n",
				result.TotalProcessed, result.Created, result.Merged, result.Skipped)
			for _, e := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read (default: first sheet)")
	cmd.Flags().IntVar(&startRow, "start-row", 2, "First data row, 1-based")

	return cmd
}

func newExportCmd(cfg *config.Config, app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export words to an xlsx or csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words := app.Store.Partition(cfg.Course)
			if all {
				words = app.Store.Snapshot()
			}
			if err := excel.Export(args[0], words); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d words to %s\n", len(words), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Export every course, not only the active one")
	return cmd
}
