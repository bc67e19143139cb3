// Package bot wires the gamification services to Telegram. It is the
// primary user surface; the HTTP API exists for dashboards and admin
// tooling.
package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dailyCheckAPI/internal/achievement"
	"dailyCheckAPI/internal/task"
	"dailyCheckAPI/internal/user"
	"dailyCheckAPI/services"
)

type Bot struct {
	api   *tgbotapi.BotAPI
	game  *services.GamificationService
	stats *services.StatsService
}

func New(token string, game *services.GamificationService, stats *services.StatsService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	b := &Bot{api: api, game: game, stats: stats}

	// Push achievement unlocks to the owning chat as they happen. The
	// callback runs inside the evaluation pass under the service lock,
	// so the network send happens on its own goroutine; only the chat
	// id is read from the record before returning.
	game.OnAchievementEarned(func(u *user.User, a *achievement.Achievement) {
		chatID := u.ID
		text := fmt.Sprintf("%s Achievement unlocked: *%s*\n%s\n+%d XP",
			a.Icon, a.Name, a.Description, a.XPReward)
		go func() {
			msg := tgbotapi.NewMessage(chatID, text)
			msg.ParseMode = tgbotapi.ModeMarkdown
			if _, err := api.Send(msg); err != nil {
				log.Printf("bot: achievement notice to %d failed: %v", chatID, err)
			}
		}()
	})

	return b, nil
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	log.Printf("bot: authorized as @%s", b.api.Self.UserName)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	msg := update.Message
	from := msg.From
	if _, err := b.game.GetOrCreateUser(msg.Chat.ID, from.UserName, from.FirstName); err != nil {
		log.Printf("bot: user lookup for %d failed: %v", msg.Chat.ID, err)
		b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.handleStart(msg)
	case "add":
		b.handleAdd(msg)
	case "list":
		b.handleList(msg)
	case "done":
		b.handleDone(msg)
	case "stats":
		b.handleStats(msg)
	case "achievements":
		b.handleAchievements(msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, strings.Join([]string{
		"Daily task tracker. Build streaks, earn XP, unlock achievements.",
		"",
		"/add <title> | <category> | <priority> | <difficulty 1-5>",
		"/list - your tasks with done buttons",
		"/done - mark tasks done for today",
		"/stats - level, XP and streaks",
		"/achievements - what you have unlocked",
	}, "\n"))
}

func (b *Bot) handleAdd(msg *tgbotapi.Message) {
	parts := strings.Split(msg.CommandArguments(), "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		b.reply(msg.Chat.ID, "Usage: /add Read 10 pages | learning | medium | 2")
		return
	}

	in := services.CreateTaskInput{Title: parts[0], Difficulty: 1}
	if len(parts) > 1 && parts[1] != "" {
		in.Category = task.Category(strings.ToLower(parts[1]))
	}
	if len(parts) > 2 && parts[2] != "" {
		in.Priority = task.Priority(strings.ToLower(parts[2]))
	}
	if len(parts) > 3 && parts[3] != "" {
		d, err := strconv.Atoi(parts[3])
		if err != nil {
			b.reply(msg.Chat.ID, "Difficulty must be a number between 1 and 5.")
			return
		}
		in.Difficulty = d
	}

	created, err := b.game.CreateTask(msg.Chat.ID, in)
	if err != nil {
		b.reply(msg.Chat.ID, "Could not add the task: "+err.Error())
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Added %q (%s, %s). Mark it with /done.",
		created.Title, created.Category, created.Priority))
}

func (b *Bot) handleList(msg *tgbotapi.Message) {
	tasks, err := b.stats.Tasks(msg.Chat.ID)
	if err != nil {
		b.reply(msg.Chat.ID, "Could not load your tasks.")
		return
	}
	if len(tasks) == 0 {
		b.reply(msg.Chat.ID, "No tasks yet. Create one with /add.")
		return
	}

	var lines []string
	for _, t := range tasks {
		mark := "▫️"
		if t.CompletedNow {
			mark = "✅"
		}
		line := fmt.Sprintf("%s %s (%s)", mark, t.Title, t.Status)
		if t.CurrentStreak > 1 {
			line += fmt.Sprintf(" 🔥%d", t.CurrentStreak)
		}
		lines = append(lines, line)
	}
	b.reply(msg.Chat.ID, strings.Join(lines, "\n"))
}

// handleDone sends an inline keyboard with one button per task still
// open today.
func (b *Bot) handleDone(msg *tgbotapi.Message) {
	tasks, err := b.stats.Tasks(msg.Chat.ID)
	if err != nil {
		b.reply(msg.Chat.ID, "Could not load your tasks.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range tasks {
		if t.Status != task.StatusActive || t.CompletedNow {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.Title, "done:"+t.ID),
		))
	}
	if len(rows) == 0 {
		b.reply(msg.Chat.ID, "Everything is done for today. 🎉")
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, "What did you finish?")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(out); err != nil {
		log.Printf("bot: send to %d failed: %v", msg.Chat.ID, err)
	}
}

func (b *Bot) handleCallback(q *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			log.Printf("bot: callback ack failed: %v", err)
		}
	}()

	taskID, ok := strings.CutPrefix(q.Data, "done:")
	if !ok || q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID

	result, err := b.game.CompleteTask(chatID, taskID, "", "", 0)
	if err != nil {
		b.reply(chatID, "Could not complete the task: "+err.Error())
		return
	}
	if result.AlreadyCompleted {
		b.reply(chatID, "Already done for today.")
		return
	}

	text := fmt.Sprintf("Done! +%d XP", result.XPAwarded)
	if result.CurrentStreak > 1 {
		text += fmt.Sprintf(", streak %d days 🔥", result.CurrentStreak)
	}
	if result.LeveledUp {
		text += fmt.Sprintf("\nLevel up! You are now level %d ⭐", result.Level)
	}
	b.reply(chatID, text)
}

func (b *Bot) handleStats(msg *tgbotapi.Message) {
	ov, err := b.stats.Overview(msg.Chat.ID)
	if err != nil {
		b.reply(msg.Chat.ID, "Could not load your stats.")
		return
	}
	b.reply(msg.Chat.ID, strings.Join([]string{
		fmt.Sprintf("Level %d (%d XP, %d to next)", ov.Level, ov.TotalXP, ov.XPToNextLevel),
		fmt.Sprintf("Streak: %d days (best %d)", ov.CurrentStreak, ov.LongestStreak),
		fmt.Sprintf("Completed: %d tasks, %d achievements", ov.TasksCompleted, ov.Achievements),
	}, "\n"))
}

func (b *Bot) handleAchievements(msg *tgbotapi.Message) {
	summaries, err := b.game.Achievements(msg.Chat.ID)
	if err != nil {
		b.reply(msg.Chat.ID, "Could not load your achievements.")
		return
	}

	var lines []string
	for _, s := range summaries {
		if s.Earned {
			lines = append(lines, fmt.Sprintf("%s %s", s.Achievement.Icon, s.Achievement.Name))
		} else {
			lines = append(lines, fmt.Sprintf("🔒 %s (%d/%d)", s.Achievement.Name, s.Current, s.Target))
		}
	}
	b.reply(msg.Chat.ID, strings.Join(lines, "\n"))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("bot: send to %d failed: %v", chatID, err)
	}
}
