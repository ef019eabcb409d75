package telegram

import (
	"context"
	"database/sql"
	"log"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/events"
	"jobfunnel-engine/internal/match"
	"jobfunnel-engine/internal/store"
)

const startCooldown = 30 * time.Second

// Bot serves the chat side: keyword management, on-demand filtering and
// one-vacancy-at-a-time delivery. Updates are handled sequentially, so
// two taps from the same user never race on the snapshot.
type Bot struct {
	api    *tgbotapi.BotAPI
	db     *sql.DB
	cfgVal *atomic.Value // stores config.Config
	hub    *events.Hub

	lastStart map[int64]time.Time
}

func New(token string, db *sql.DB, cfgVal *atomic.Value, hub *events.Hub) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:       api,
		db:        db,
		cfgVal:    cfgVal,
		hub:       hub,
		lastStart: make(map[int64]time.Time),
	}, nil
}

// Run long-polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	log.Printf("[telegram] authorized as @%s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[telegram] panic in update handler: %v", rec)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) cfg() config.Config {
	return b.cfgVal.Load().(config.Config)
}

func (b *Bot) pipeline() match.Pipeline {
	cfg := b.cfg()
	return match.Pipeline{
		Weights:    store.WeightSource{DB: b.db},
		Threshold:  cfg.Matching.ScoreThreshold,
		MaxResults: cfg.Matching.MaxResults,
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[telegram] send chat=%d: %v", chatID, err)
	}
}
