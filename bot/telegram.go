package bot

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/viktsys/taifexbot/logger"
)

const (
	secretHeader = "X-Telegram-Bot-Api-Secret-Token"

	replyTimeout = 2 * time.Minute
)

// Sender delivers a reply. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Webhook receives Telegram updates and answers text messages through the
// dispatcher. Replies are sent in the background so the update is
// acknowledged right away.
type Webhook struct {
	dispatcher *Dispatcher
	sender     Sender
	secret     string
	limiter    *rate.Limiter
	log        *logger.Logger
	wg         sync.WaitGroup
}

func NewWebhook(dispatcher *Dispatcher, sender Sender, secret string, log *logger.Logger) *Webhook {
	return &Webhook{
		dispatcher: dispatcher,
		sender:     sender,
		secret:     secret,
		// stays under Telegram's bot-wide limit of 30 messages per second
		limiter: rate.NewLimiter(rate.Limit(20), 30),
		log:     log.With("component", "telegram_webhook"),
	}
}

// Handle is the gin handler for POST /callback.
func (w *Webhook) Handle(c *gin.Context) {
	if w.secret != "" {
		got := c.GetHeader(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(w.secret)) != 1 {
			w.log.Warnw("rejected webhook with bad secret token", "remote", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid secret token"})
			return
		}
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		// acknowledged anyway, a redelivery would fail the same way
		w.log.Errorw("failed to decode webhook update", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	msg := update.Message
	if msg != nil && msg.Text != "" && msg.From != nil && msg.Chat != nil {
		w.log.Debugw("received message",
			"update_id", update.UpdateID,
			"chat_id", msg.Chat.ID,
			"user_id", msg.From.ID,
		)

		w.wg.Add(1)
		go w.reply(Message{UserID: msg.From.ID, ChatID: msg.Chat.ID, Text: msg.Text}, msg.MessageID)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Wait blocks until every pending reply has been sent.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

func (w *Webhook) reply(in Message, replyTo int) {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			w.log.Errorw("panic while handling message", "panic", r, "chat_id", in.ChatID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	text := w.dispatcher.Handle(ctx, in)

	if err := w.limiter.Wait(ctx); err != nil {
		w.log.Warnw("reply dropped by rate limiter", "chat_id", in.ChatID, "error", err)
		return
	}

	out := tgbotapi.NewMessage(in.ChatID, text)
	out.ReplyToMessageID = replyTo
	if _, err := w.sender.Send(out); err != nil {
		w.log.Errorw("failed to send reply", "chat_id", in.ChatID, "error", err)
	}
}
