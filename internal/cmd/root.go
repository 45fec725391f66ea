package cmd

import (
	"fmt"
	"strings"

	"github.com/example/reviewbot/internal/config"
	"github.com/example/reviewbot/pkg/models"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for reviewbot.
func NewRootCmd(cfg *config.Config, app *App) *cobra.Command {
	var (
		courseType string
		courseBook string
	)

	root := &cobra.Command{
		Use:   "reviewbot",
		Short: "Spaced-repetition review of missed vocabulary words",
		Long: `Keep a missed-word book per textbook and review it on schedule.

reviewbot provides tools to:
- Record missed words and answers
- List today's and overdue reviews
- Browse, filter and group the book
- Import and export word lists (xlsx, csv)
- Sync with the remote store and run the Telegram bot`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if courseType != "" {
				cfg.Course.CourseType = models.CourseType(strings.ToLower(courseType))
			}
			if courseBook != "" {
				cfg.Course.CourseBook = courseBook
			}
			return cfg.Validate()
		},
	}

	root.PersistentFlags().StringVar(&courseType, "course-type", "", "Active course type: required or elective (default from COURSE_TYPE)")
	root.PersistentFlags().StringVar(&courseBook, "course-book", "", "Active course book (default from COURSE_BOOK)")

	root.AddCommand(newAddCmd(cfg, app))
	root.AddCommand(newAnswerCmd(cfg, app))
	root.AddCommand(newMasterCmd(cfg, app))
	root.AddCommand(newUnmasterCmd(cfg, app))
	root.AddCommand(newRemoveCmd(cfg, app))
	root.AddCommand(newClearCmd(cfg, app))
	root.AddCommand(newDueCmd(app))
	root.AddCommand(newOverdueCmd(app))
	root.AddCommand(newListCmd(cfg, app))
	root.AddCommand(newStatsCmd(cfg, app))
	root.AddCommand(newSyncCmd(app))
	root.AddCommand(newImportCmd(cfg, app))
	root.AddCommand(newExportCmd(cfg, app))
	root.AddCommand(newServeCmd(cfg, app))

	return root
}

// findWord looks word up in the active partition
func findWord(app *App, active models.PartitionKey, word string) (models.WordRecord, error) {
	rec, ok := app.Store.FindWord(active, word)
	if !ok {
		return models.WordRecord{}, fmt.Errorf("word %q not found in %s", word, active)
	}
	return rec, nil
}
