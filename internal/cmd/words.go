package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/reviewbot/internal/config"
	"github.com/example/reviewbot/pkg/models"
	"github.com/spf13/cobra"
)

func newAddCmd(cfg *config.Config, app *App) *cobra.Command {
	var (
		sentence   string
		pos        string
		exam       string
		difficulty string
		direction  string
		unit       int
	)

	cmd := &cobra.Command{
		Use:   "add <word> <meaning>",
		Short: "Record a missed word",
		Long:  "Record a missed word in the active course. A word already in the course is merged and its error count grows.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			word := models.WordRecord{
				Word:       strings.TrimSpace(args[0]),
				Meaning:    strings.TrimSpace(args[1]),
				Context:    sentence,
				Difficulty: models.Difficulty(strings.ToLower(difficulty)),
			}
			if word.Word == "" {
				return fmt.Errorf("word cannot be empty")
			}
			if direction != "" {
				word.Direction = models.ParseLearningDirection(direction)
			}
			if pos != "" {
				p := models.PartOfSpeech(strings.ToLower(pos))
				word.PartOfSpeech = &p
			}
			if exam != "" {
				e := models.ExamSource(strings.ToLower(exam))
				word.ExamSource = &e
			}
			if unit > 0 {
				word.TextbookSource = &models.TextbookSource{
					CourseType: cfg.Course.CourseType,
					CourseBook: cfg.Course.CourseBook,
					Unit:       unit,
				}
			}

			rec := app.Store.AddOrMergeMissedWord(cfg.Course, word)
			out := cmd.OutOrStdout()
			if rec.ErrorCount > 1 {
				fmt.Fprintf(out, "Merged %q: %d errors, next review %s\n", rec.Word, rec.ErrorCount, rec.NextReviewDate.Local().Format(time.DateTime))
				return nil
			}
			fmt.Fprintf(out, "Added %q to %s: next review %s\n", rec.Word, cfg.Course, rec.NextReviewDate.Local().Format(time.DateTime))
			return nil
		},
	}

	cmd.Flags().StringVarP(&sentence, "context", "c", "", "Example sentence")
	cmd.Flags().StringVar(&pos, "pos", "", "Part of speech (noun, verb, ...)")
	cmd.Flags().StringVar(&exam, "exam", "", "Exam source (cet4, ielts, ...)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or hard")
	cmd.Flags().StringVar(&direction, "direction", "", "recognize_meaning, recall_word or dictation")
	cmd.Flags().IntVar(&unit, "unit", 0, "Textbook unit (default 1)")

	return cmd
}

func newAnswerCmd(cfg *config.Config, app *App) *cobra.Command {
	var correct, wrong bool

	cmd := &cobra.Command{
		Use:   "answer <word>",
		Short: "Record the outcome of reviewing a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := findWord(app, cfg.Course, args[0])
			if err != nil {
				return err
			}

			app.Store.RecordOutcome(rec.ID, correct)
			rec, _ = app.Store.Get(rec.ID)
			app.Queue.Enqueue(models.AttemptRecord{
				UserID:      cfg.UserID,
				WordID:      rec.ID,
				Word:        rec.Word,
				Meaning:     rec.Meaning,
				Context:     rec.Context,
				Direction:   rec.Direction,
				IsCorrect:   correct,
				StreakCount: rec.ConsecutiveCorrect,
				DeviceID:    cfg.DeviceID,
			})

			out := cmd.OutOrStdout()
			if rec.IsMastered {
				fmt.Fprintf(out, "%q mastered after %d reviews\n", rec.Word, rec.ReviewCount)
				return nil
			}
			fmt.Fprintf(out, "%q: review %d, next review %s\n", rec.Word, rec.ReviewCount, rec.NextReviewDate.Local().Format(time.DateTime))
			return nil
		},
	}

	cmd.Flags().BoolVar(&correct, "correct", false, "The word was remembered")
	cmd.Flags().BoolVar(&wrong, "wrong", false, "The word was missed again")
	cmd.MarkFlagsMutuallyExclusive("correct", "wrong")
	cmd.MarkFlagsOneRequired("correct", "wrong")

	return cmd
}

func newMasterCmd(cfg *config.Config, app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "master <word>...",
		Short: "Mark words as mastered",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := resolveIDs(app, cfg.Course, args)
			if err != nil {
				return err
			}
			app.Store.BulkMarkMastered(ids)
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d words as mastered\n", len(ids))
			return nil
		},
	}
}

func newUnmasterCmd(cfg *config.Config, app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unmaster <word>",
		Short: "Put a mastered word back into review",
		Long:  "Clear the mastered flag and restart the schedule; the word is due right away.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := findWord(app, cfg.Course, args[0])
			if err != nil {
				return err
			}
			app.Store.UnmarkMastered(rec.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "%q is back in review\n", rec.Word)
			return nil
		},
	}
}

func newRemoveCmd(cfg *config.Config, app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <word>...",
		Aliases: []string{"rm"},
		Short:   "Remove words from the active course",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := resolveIDs(app, cfg.Course, args)
			if err != nil {
				return err
			}
			app.Store.BulkRemove(ids)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d words\n", len(ids))
			return nil
		},
	}
}

func newClearCmd(cfg *config.Config, app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every word of the active course",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear %s without --yes", cfg.Course)
			}
			n := len(app.Store.Partition(cfg.Course))
			app.Store.ClearPartition(cfg.Course)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d words from %s\n", n, cfg.Course)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing the course")
	return cmd
}

// resolveIDs maps words of the active partition to record ids; all must exist
func resolveIDs(app *App, active models.PartitionKey, words []string) ([]string, error) {
	ids := make([]string, 0, len(words))
	for _, w := range words {
		rec, err := findWord(app, active, w)
		if err != nil {
			return nil, err
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}
