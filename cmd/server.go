package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/viktsys/taifexbot/api"
	"github.com/viktsys/taifexbot/bot"
)

const shutdownTimeout = 15 * time.Second

var serverCMD = &cobra.Command{
	Use:   "server",
	Short: "Start the API server and the Telegram webhook",
	Long:  `Start the HTTP server that answers the Telegram webhook on /callback and serves the stored records as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var webhook *bot.Webhook
		var webhookHandler gin.HandlerFunc
		if a.cfg.Telegram.BotToken != "" {
			botAPI, err := tgbotapi.NewBotAPI(a.cfg.Telegram.BotToken)
			if err != nil {
				return fmt.Errorf("failed to create telegram bot: %w", err)
			}
			a.log.Infow("telegram bot authorized", "username", botAPI.Self.UserName)

			dispatcher := bot.NewDispatcher(a.store, a.processor, a.cfg.Telegram.AdminIDs, a.log)
			webhook = bot.NewWebhook(dispatcher, botAPI, a.cfg.Telegram.WebhookSecret, a.log)
			webhookHandler = webhook.Handle
		} else {
			a.log.Warn("TELEGRAM_BOT_TOKEN is not set, /callback is disabled")
		}

		r := api.SetupRoutes(api.Deps{
			Store:     a.store,
			Inspector: a.processor,
			Webhook:   webhookHandler,
			Debug:     a.cfg.App.DebugEndpoints,
			Log:       a.log,
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.App.HTTPPort),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			a.log.Infow("Starting server", "addr", srv.Addr, "debug_endpoints", a.cfg.App.DebugEndpoints)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
		case <-ctx.Done():
		}

		a.log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warnw("server shutdown incomplete", "error", err)
		}
		if webhook != nil {
			webhook.Wait()
		}
		return nil
	},
}
