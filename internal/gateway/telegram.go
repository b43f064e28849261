package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rahul/taskpilot/internal/agent"
	"github.com/rahul/taskpilot/internal/store"
)

// EventStore lists a user's calendar events for the /events command.
type EventStore interface {
	ListEvents(userID string) ([]store.Event, error)
}

// TelegramGateway treats every plain text message as a goal: it echoes the
// synthesized plan, then relays execution events back into the chat.
type TelegramGateway struct {
	Bot    *tgbotapi.BotAPI
	Engine *agent.Engine
	Events EventStore
}

func NewTelegramGateway(token string, engine *agent.Engine, events EventStore) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:    bot,
		Engine: engine,
		Events: events,
	}, nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

		chatID := update.Message.Chat.ID
		text := strings.TrimSpace(update.Message.Text)

		if text == "" {
			tg.reply(chatID, "Please send text only.")
			continue
		}

		switch {
		case text == "/start":
			tg.reply(chatID, "Send me a goal and I'll plan it out and run the steps (web search, calendar, email). Use /events to list your calendar entries.")
		case text == "/events":
			tg.sendEvents(chatID)
		default:
			tg.runGoal(chatID, text)
		}
	}
	return nil
}

func (tg *TelegramGateway) runGoal(chatID int64, goal string) {
	tg.reply(chatID, "🤖 Thinking… generating a plan...")

	ctx := context.Background()
	userID := fmt.Sprintf("%d", chatID)

	plan, err := tg.Engine.Plan(ctx, userID, goal)
	if err != nil {
		tg.reply(chatID, "❌ Error: "+err.Error())
		return
	}

	if summary, err := json.MarshalIndent(planSummary(plan), "", "  "); err == nil {
		msg := tgbotapi.NewMessage(chatID, "📝 *Here is your plan:*\n\n```\n"+string(summary)+"\n```")
		msg.ParseMode = "Markdown"
		tg.Bot.Send(msg)
	}

	tg.reply(chatID, "⚙️ Starting execution…")

	tg.Engine.Execute(ctx, plan, func(event agent.Event) {
		switch event.Type {
		case agent.EventLog:
			tg.reply(chatID, "📘 Log: "+event.Message)
		case agent.EventRetry:
			tg.reply(chatID, "🔁 Retrying: "+event.Message)
		case agent.EventCompleted:
			tg.reply(chatID, "✅ Execution finished!")
		}
	})
}

func (tg *TelegramGateway) sendEvents(chatID int64) {
	if tg.Events == nil {
		tg.reply(chatID, "Calendar is not configured.")
		return
	}
	events, err := tg.Events.ListEvents(fmt.Sprintf("%d", chatID))
	if err != nil {
		tg.reply(chatID, "❌ Error: "+err.Error())
		return
	}
	if len(events) == 0 {
		tg.reply(chatID, "No calendar events yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📅 Your events:\n")
	for _, ev := range events {
		sb.WriteString(fmt.Sprintf("- %s — %s (%d min)\n", ev.Date.Format("2006-01-02 15:04"), ev.Title, ev.DurationMinutes))
	}
	tg.reply(chatID, sb.String())
}

// planSummary strips execution state down to what is worth echoing in chat.
func planSummary(plan *store.Plan) map[string]any {
	steps := make([]map[string]any, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		steps = append(steps, map[string]any{
			"id":     s.ID,
			"action": s.Action,
			"tool":   s.Tool,
			"args":   s.Args,
		})
	}
	return map[string]any{"goal": plan.Goal, "steps": steps}
}

func (tg *TelegramGateway) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := tg.Bot.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id := 0
	fmt.Sscanf(chatID, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(int64(id), text)
	msg.ParseMode = "Markdown"
	_, err := tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
