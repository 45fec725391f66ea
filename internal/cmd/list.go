package cmd

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/example/reviewbot/internal/config"
	"github.com/example/reviewbot/internal/database"
	"github.com/example/reviewbot/internal/review"
	"github.com/example/reviewbot/pkg/models"
	"github.com/spf13/cobra"
)

func newDueCmd(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List words due today",
		Long:  "List non-mastered words whose next review falls today or earlier, most urgent first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			words := app.Store.DueToday(time.Now())
			return writeOutput(cmd.OutOrStdout(), format, words, func(w io.Writer) error {
				if len(words) == 0 {
					fmt.Fprintln(w, "Nothing to review today")
					return nil
				}
				return writeWordTable(w, words)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")
	return cmd
}

func newOverdueCmd(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List words whose review time has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			words := app.Store.Overdue(time.Now())
			return writeOutput(cmd.OutOrStdout(), format, words, func(w io.Writer) error {
				if len(words) == 0 {
					fmt.Fprintln(w, "No overdue words")
					return nil
				}
				return writeWordTable(w, words)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")
	return cmd
}

func newListCmd(cfg *config.Config, app *App) *cobra.Command {
	var (
		all          bool
		search       string
		sortBy       string
		groupBy      string
		sources      []string
		pos          []string
		exams        []string
		difficulties []string
		directions   []string
		mastery      []string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Browse the missed-word book",
		Long: `Filter, sort and group the words of the active course.

Filters of the same kind are OR-ed, different kinds are AND-ed.
Sort: recency, error_count, review_count, last_review, difficulty, alphabetical, urgency.
Group: all, textbook_source, part_of_speech, exam_source, difficulty, direction, mastery.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sortOption, err := review.ParseSortOption(sortBy)
			if err != nil {
				return err
			}
			groupOption, err := review.ParseGroupOption(groupBy)
			if err != nil {
				return err
			}

			q := review.Query{
				TextbookSources: sources,
				PartsOfSpeech:   convert[models.PartOfSpeech](pos),
				ExamSources:     convert[models.ExamSource](exams),
				Difficulties:    convert[models.Difficulty](difficulties),
				Directions:      convert[models.LearningDirection](directions),
				MasteryLevels:   mastery,
				Search:          search,
				Sort:            sortOption,
				Group:           groupOption,
			}
			if !all {
				active := cfg.Course
				q.Partition = &active
			}

			groups := app.Store.Browse(q)
			return writeOutput(cmd.OutOrStdout(), format, groups, func(w io.Writer) error {
				if len(groups) == 0 || (len(groups) == 1 && len(groups[0].Words) == 0) {
					fmt.Fprintln(w, "No words found")
					return nil
				}
				for i, g := range groups {
					if q.Group != "" && q.Group != review.GroupAll {
						if i > 0 {
							fmt.Fprintln(w)
						}
						st := g.Stats()
						fmt.Fprintf(w, "== %s (%d words, %d mastered, %.1f%% errors)\n", st.Name, st.Count, st.MasteredCount, st.AvgErrorRate)
					}
					if err := writeWordTable(w, g.Words); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Search every course, not only the active one")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive search in word, meaning and context")
	cmd.Flags().StringVar(&sortBy, "sort", string(review.SortRecency), "Sort order")
	cmd.Flags().StringVar(&groupBy, "group", string(review.GroupAll), "Grouping")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Textbook source, e.g. \"Book1 Unit 3\"")
	cmd.Flags().StringSliceVar(&pos, "pos", nil, "Part of speech")
	cmd.Flags().StringSliceVar(&exams, "exam", nil, "Exam source")
	cmd.Flags().StringSliceVar(&difficulties, "difficulty", nil, "Difficulty")
	cmd.Flags().StringSliceVar(&directions, "direction", nil, "Learning direction")
	cmd.Flags().StringSliceVar(&mastery, "mastery", nil, "Mastery level, e.g. 0%, 50%, mastered")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")

	return cmd
}

// statsReport is the output of the stats command
type statsReport struct {
	Course   string                 `json:"course" yaml:"course"`
	All      review.Summary         `json:"all" yaml:"all"`
	Active   review.Summary         `json:"active" yaml:"active"`
	Attempts *database.AttemptStats `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Days     int                    `json:"days" yaml:"days"`
}

func newStatsCmd(cfg *config.Config, app *App) *cobra.Command {
	var (
		days   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review statistics",
		Long:  "Show the dashboard figures of all courses and the active one, plus answer accuracy over the last days.",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			report := statsReport{
				Course: cfg.Course.String(),
				All:    app.Store.Summary(now),
				Active: app.Store.PartitionSummary(cfg.Course, now),
				Days:   days,
			}

			stats, err := app.Attempts.GetStatsByPeriod(cmd.Context(), now.AddDate(0, 0, -days), now)
			if err != nil {
				log.Printf("Warning: attempt statistics unavailable: %v", err)
			} else {
				report.Attempts = &stats
			}

			return writeOutput(cmd.OutOrStdout(), format, report, func(w io.Writer) error {
				writeSummary(w, "All courses", report.All)
				fmt.Fprintln(w)
				writeSummary(w, report.Course, report.Active)
				if report.Attempts != nil {
					fmt.Fprintf(w, "\nLast %d days: %d answers, %d correct (%.1f%%), %d words\n",
						days, report.Attempts.Total, report.Attempts.Correct, report.Attempts.Accuracy, report.Attempts.DistinctWords)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Period for answer statistics")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")

	return cmd
}

func writeSummary(w io.Writer, title string, s review.Summary) {
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "  Words:        %d (%d mastered, %.1f%%)\n", s.Total, s.MasteredCount, s.MasteryRate)
	fmt.Fprintf(w, "  Due today:    %d\n", s.TodayReviewCount)
	fmt.Fprintf(w, "  Overdue:      %d\n", s.OverdueCount)
	fmt.Fprintf(w, "  Reviews:      %d\n", s.TotalReviews)
	fmt.Fprintf(w, "  Error rate:   %.1f%%\n", s.AverageErrorRate)
}

func convert[T ~string](values []string) []T {
	if len(values) == 0 {
		return nil
	}
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = T(v)
	}
	return out
}
