package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/example/reviewbot/internal/bot"
	"github.com/example/reviewbot/internal/config"
	"github.com/example/reviewbot/internal/scheduler"
	"github.com/example/reviewbot/internal/synchronizer"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *config.Config, app *App) *cobra.Command {
	var noSync bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot with scheduled reminders",
		Long: `Reconcile with the remote store, then serve the Telegram bot until interrupted.

Buffered answers are uploaded every FLUSH_INTERVAL and a reminder is sent
to TELEGRAM_CHAT_ID at REMINDER_HOUR when words are due.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cfg.TelegramToken == "" {
				return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
			}

			if !noSync {
				err := app.Bridge.Reconcile(ctx, app.Store)
				if errors.Is(err, synchronizer.ErrSyncUnavailable) {
					log.Printf("Warning: %v, serving the local book", err)
				} else if err != nil {
					return err
				}
			}

			b, err := bot.New(&bot.BotConfig{
				Token:    cfg.TelegramToken,
				ChatID:   cfg.TelegramChatID,
				Course:   cfg.Course,
				UserID:   cfg.UserID,
				DeviceID: cfg.DeviceID,
			}, app.Store, app.Queue)
			if err != nil {
				return err
			}

			// Напоминания только при заданном чате
			var notifier scheduler.Notifier
			if cfg.TelegramChatID != 0 {
				notifier = b
			} else {
				log.Println("TELEGRAM_CHAT_ID is not set, daily reminders are disabled")
			}

			sched := scheduler.New(app.Store, app.Queue, notifier, scheduler.Config{
				FlushInterval: cfg.FlushInterval,
				ReminderHour:  cfg.ReminderHour,
				ChatID:        cfg.TelegramChatID,
			})
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			return b.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Skip the startup reconcile")
	return cmd
}
