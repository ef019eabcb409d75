package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobfunnel-engine/internal/domain"
	"jobfunnel-engine/internal/events"
	"jobfunnel-engine/internal/match"
	"jobfunnel-engine/internal/store"
)

const defaultWeight = 10

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	log.Printf("[telegram] user=%d cmd=/%s", msg.From.ID, msg.Command())

	user, err := store.GetOrCreateUser(ctx, b.db, msg.From.ID, msg.From.UserName)
	if err != nil {
		log.Printf("[telegram] get user %d: %v", msg.From.ID, err)
		b.send(chatID, "Hmm, system issue 🤷‍♂️ Try again later.")
		return
	}

	switch msg.Command() {
	case "start":
		b.cmdStart(chatID, msg.From.ID)
	case "add_keyword":
		b.cmdAddKeyword(ctx, chatID, user, msg.CommandArguments())
	case "remove_keyword":
		b.cmdRemoveKeyword(ctx, chatID, user, msg.CommandArguments())
	case "keywords":
		b.cmdKeywords(ctx, chatID, user)
	case "region":
		b.cmdRegion(ctx, chatID, user, msg.CommandArguments())
	case "refresh":
		b.cmdRefresh(ctx, chatID, user)
	case "next":
		b.cmdNext(ctx, chatID, user)
	default:
		b.send(chatID, "Unknown command. Try /add_keyword, /refresh or /next 😉")
	}
}

func (b *Bot) cmdStart(chatID, telegramID int64) {
	// repeated /start within the cooldown is ignored
	now := time.Now()
	if last, ok := b.lastStart[telegramID]; ok && now.Sub(last) < startCooldown {
		return
	}
	b.lastStart[telegramID] = now

	b.send(chatID, "Hi! I'll send you new dev jobs. Use /next to get a vacancy 😉")
}

// cmdAddKeyword handles "/add_keyword <keyword...> [weight]". The last
// token is the weight when it parses as an integer, negatives included.
func (b *Bot) cmdAddKeyword(ctx context.Context, chatID int64, user domain.User, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.send(chatID, "Send me a keyword\nI'll use it to find jobs for you ✅")
		b.send(chatID, "Example: /add_keyword python 10\n💡You can also try: SQL, Junior, or any skill")
		return
	}

	weight := defaultWeight
	if len(fields) > 1 {
		if w, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			weight = w
			fields = fields[:len(fields)-1]
		}
	}
	keyword := strings.Join(fields, " ")

	stored, err := store.UpsertKeyword(ctx, b.db, user.ID, keyword, weight)
	if err != nil {
		b.send(chatID, "That keyword didn't work 👀 Try /add_keyword python 10")
		return
	}

	b.send(chatID, fmt.Sprintf("Keyword '%s' saved with score %d ✅", stored, weight))
	b.send(chatID, "You can use /refresh now to filter jobs for you 😎")
}

func (b *Bot) cmdRemoveKeyword(ctx context.Context, chatID int64, user domain.User, args string) {
	keyword := strings.TrimSpace(args)
	if keyword == "" {
		prefs, err := store.ListKeywords(ctx, b.db, user.ID)
		if err != nil || len(prefs) == 0 {
			b.send(chatID, "You have no keywords to remove 🤷‍♂️😺")
			return
		}
		var sb strings.Builder
		sb.WriteString("Send me a keyword from your keywords 🧹\n")
		for _, p := range prefs {
			fmt.Fprintf(&sb, "• %s\n", p.Keyword)
		}
		b.send(chatID, sb.String())
		return
	}

	err := store.DeleteKeyword(ctx, b.db, user.ID, keyword)
	switch {
	case errors.Is(err, store.ErrNotFound):
		b.send(chatID, fmt.Sprintf("Can't find: %s 👀", keyword))
		b.send(chatID, "🕶️ You can try again /remove_keyword")
	case err != nil:
		b.send(chatID, "Hmm, system issue 🤷‍♂️")
	default:
		b.send(chatID, fmt.Sprintf("💅 Successfully removed: %s", keyword))
		b.send(chatID, "Use /refresh to filter jobs without that keyword 🕵️‍♂️")
	}
}

func (b *Bot) cmdKeywords(ctx context.Context, chatID int64, user domain.User) {
	prefs, err := store.ListKeywords(ctx, b.db, user.ID)
	if err != nil {
		b.send(chatID, "Hmm, system issue 🤷‍♂️")
		return
	}
	if len(prefs) == 0 {
		b.send(chatID, "No keywords yet ⏳ Use /add_keyword <keyword> <weight> first")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your keywords:\n")
	for _, p := range prefs {
		fmt.Fprintf(&sb, "• %s (%d)\n", p.Keyword, p.Weight)
	}
	b.send(chatID, sb.String())
}

// cmdRegion handles "/region [name|any]". No argument shows the current
// restriction.
func (b *Bot) cmdRegion(ctx context.Context, chatID int64, user domain.User, args string) {
	arg := strings.TrimSpace(args)
	switch {
	case arg == "":
		region, err := store.GetUserRegion(ctx, b.db, user.ID)
		if err != nil {
			b.send(chatID, "Hmm, system issue 🤷‍♂️")
			return
		}
		if region == "" {
			b.send(chatID, "No region set 🌍 You see jobs from everywhere.\nUse /region warszawa to narrow down, /region any to keep it open.")
			return
		}
		b.send(chatID, fmt.Sprintf("Your region: %s 📍\nUse /region any to see jobs from everywhere.", region))
	case strings.EqualFold(arg, "any"):
		if err := store.ClearUserRegion(ctx, b.db, user.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			b.send(chatID, "Hmm, system issue 🤷‍♂️")
			return
		}
		b.send(chatID, "Region cleared 🌍 You'll see jobs from everywhere.")
		b.send(chatID, "Use /refresh to rebuild your list 😎")
	default:
		stored, err := store.SetUserRegion(ctx, b.db, user.ID, arg)
		if err != nil {
			b.send(chatID, "That region didn't work 👀 Try /region warszawa")
			return
		}
		b.send(chatID, fmt.Sprintf("Region set to %s ✅", stored))
		b.send(chatID, "Use /refresh to filter jobs in your region 🕵️‍♂️")
	}
}

func (b *Bot) cmdRefresh(ctx context.Context, chatID int64, user domain.User) {
	if !store.RefreshBudgetLeft(user, b.cfg().Limits.DailyRefreshes) {
		b.send(chatID, "You've hit today's refresh limit 🙈 Come back tomorrow!")
		return
	}

	b.send(chatID, "⏳ Filtering jobs, please wait…")

	jobs, err := store.ListJobs(ctx, b.db)
	if err != nil {
		log.Printf("[telegram] list jobs: %v", err)
		b.send(chatID, "⚠️ Failed to refresh jobs. Try again later.")
		return
	}

	region, err := store.GetUserRegion(ctx, b.db, user.ID)
	if err != nil {
		log.Printf("[telegram] region user=%d: %v", user.ID, err)
		b.send(chatID, "⚠️ Failed to refresh jobs. Try again later.")
		return
	}
	jobs = match.NarrowByRegion(jobs, region)

	matches, err := b.pipeline().FilterJobsForUser(ctx, user.ID, jobs)
	if err != nil {
		log.Printf("[telegram] filter user=%d: %v", user.ID, err)
		b.send(chatID, "⚠️ Failed to refresh jobs. Try again later.")
		return
	}
	if matches == nil {
		b.send(chatID, "You have no filters set ⏳ Use /add_keyword <keyword> <weight> first")
		b.send(chatID, "💡 Example /add_keyword python 10")
		return
	}

	if err := store.ReplaceFilteredJobs(ctx, b.db, user.ID, matches); err != nil {
		log.Printf("[telegram] save snapshot user=%d: %v", user.ID, err)
		b.send(chatID, "⚠️ Failed to refresh jobs. Try again later.")
		return
	}

	// Only a refresh that actually landed costs budget.
	if _, err := store.BumpRefreshCount(ctx, b.db, user, b.cfg().Limits.DailyRefreshes); err != nil {
		log.Printf("[telegram] bump refresh user=%d: %v", user.ID, err)
	}

	b.hub.Publish(events.Make("", events.TypeSnapshotBuilt, map[string]any{
		"user_id": user.ID,
		"count":   len(matches),
	}))
	b.send(chatID, fmt.Sprintf("✅ Found %d relevant jobs. Use /next to get your jobs", len(matches)))
}

func (b *Bot) cmdNext(ctx context.Context, chatID int64, user domain.User) {
	allowed, err := store.BumpVacanciesCount(ctx, b.db, user, b.cfg().Limits.DailyVacancies)
	if err != nil {
		b.send(chatID, "Hmm, system issue 🤷‍♂️")
		return
	}
	if !allowed {
		b.send(chatID, "That's all for today 🙈 More vacancies tomorrow!")
		return
	}

	b.sendNextVacancy(ctx, chatID, user)
}
