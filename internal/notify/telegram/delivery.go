package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/events"
	"jobfunnel-engine/internal/store"
)

// sendNextVacancy delivers the highest-ranked job the user hasn't seen
// yet and records it as sent, so the same vacancy never goes out twice.
func (b *Bot) sendNextVacancy(ctx context.Context, chatID int64, user domain.User) {
	n, err := store.CountFilteredJobs(ctx, b.db, user.ID)
	if err != nil {
		b.send(chatID, "Hmm, system issue 🤷‍♂️")
		return
	}
	if n == 0 {
		b.send(chatID, "You have no filters set ⏳ Use /add_keyword <keyword> <weight> first")
		b.send(chatID, "💡 Example /add_keyword python 10")
		return
	}

	job, score, err := store.NextUnseenJob(ctx, b.db, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		b.send(chatID, "🫠 Dried up. Jobs gone. I am but dust")
		return
	}
	if err != nil {
		log.Printf("[telegram] next vacancy user=%d: %v", user.ID, err)
		b.send(chatID, "Hmm, system issue 🤷‍♂️")
		return
	}

	if err := store.MarkJobSent(ctx, b.db, user.ID, job.ID); err != nil {
		log.Printf("[telegram] mark sent user=%d job=%d: %v", user.ID, job.ID, err)
		b.send(chatID, "Hmm, system issue 🤷‍♂️")
		return
	}

	msg := tgbotapi.NewMessage(chatID, vacancyMessage(job, score))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = vacancyKeyboard(job.ID)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[telegram] send vacancy chat=%d: %v", chatID, err)
		return
	}

	b.hub.Publish(events.Make("", events.TypeJobSent, map[string]any{
		"user_id": user.ID,
		"job_id":  job.ID,
	}))
}

func vacancyKeyboard(jobID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(jobID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Applied ✅", "applied|"+id),
			tgbotapi.NewInlineKeyboardButtonData("Skip ⏭️", "skip|"+id),
		),
	)
}

// handleCallback processes the applied/skip buttons under a vacancy and
// follows up with the next one.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	action, idStr, ok := strings.Cut(cq.Data, "|")
	if !ok {
		return
	}
	jobID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || jobID <= 0 {
		return
	}

	chatID := cq.Message.Chat.ID
	log.Printf("[telegram] user=%d callback=%s job=%d", cq.From.ID, action, jobID)

	user, err := store.GetOrCreateUser(ctx, b.db, cq.From.ID, cq.From.UserName)
	if err != nil {
		b.answerCallback(cq.ID, "Hmm, system issue 🤷‍♂️")
		return
	}

	job, err := store.GetJob(ctx, b.db, jobID)
	if errors.Is(err, store.ErrNotFound) {
		b.answerCallback(cq.ID, "Job not found.")
		return
	}
	if err != nil {
		b.answerCallback(cq.ID, "Hmm, system issue 🤷‍♂️")
		return
	}

	status := domain.StatusSkipped
	if action == "applied" {
		status = domain.StatusApplied
	}
	if err := store.SetUserJobStatus(ctx, b.db, user.ID, job.ID, status); err != nil {
		log.Printf("[telegram] set status user=%d job=%d: %v", user.ID, job.ID, err)
		b.answerCallback(cq.ID, "Hmm, system issue 🤷‍♂️")
		return
	}

	if action == "applied" {
		b.answerCallback(cq.ID, fmt.Sprintf("Marked '%s' as applied 😎", shortTitle(job.Title)))
	} else {
		b.answerCallback(cq.ID, "Skipped.")
	}

	b.sendNextVacancy(ctx, chatID, user)
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		// expired queries are routine after long idle periods
		log.Printf("[telegram] answer callback: %v", err)
	}
}
