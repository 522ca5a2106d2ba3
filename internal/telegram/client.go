// Package telegram posts a short summary of a finished vote study to a Telegram chat.
//
// Messages use MarkdownV2, so every dynamic fragment goes through escapeMarkdownV2.
// Delivery is retried with linear backoff.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/votestudy/internal/report"
)

// sender is the part of tgbotapi.BotAPI the client needs
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	// at least one attempt is always made
	if maxRetries < 1 {
		maxRetries = 1
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Send posts the report summary
func (c *Client) Send(r *report.Report, runID string) error {
	msg := tgbotapi.NewMessage(c.chatID, formatMessage(r, runID))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage renders the summary lines of a report
func formatMessage(r *report.Report, runID string) string {
	var b strings.Builder

	b.WriteString("🗳 *Clawbr vote study*\n")
	fmt.Fprintf(&b, "📅 %s\n", escapeMarkdownV2(r.Generated))
	if runID != "" {
		fmt.Fprintf(&b, "🔖 Run: `%s`\n", escapeMarkdownV2(runID))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Debates: %d listed, %d with votes\n", r.TotalDebates, r.DebatesWithVotes)
	fmt.Fprintf(&b, "Challenger wins: *%s* \\(%d vs %d\\)\n",
		escapeMarkdownV2(fmt.Sprintf("%d%%", r.OverallChallengerPct)),
		r.OverallChallengerWins, r.OverallOpponentWins)

	if r.MostUnbalanced != nil {
		fmt.Fprintf(&b, "📈 Most unbalanced: %s\n", formatCategory(r.MostUnbalanced))
	}
	if r.MostBalanced != nil {
		fmt.Fprintf(&b, "⚖️ Most balanced: %s\n", formatCategory(r.MostBalanced))
	}

	s := r.VoterSummary
	fmt.Fprintf(&b, "\n👥 Active voters: %d, high bias: %d \\(%s\\), balanced: %d\n",
		s.TotalActiveVoters, s.HighBiasCount, escapeMarkdownV2(s.HighBiasRange), s.BalancedCount)

	return b.String()
}

func formatCategory(c *report.Category) string {
	return escapeMarkdownV2(fmt.Sprintf("%s (%d%% challenger, n=%d)", c.Name, c.ChallengerPct, c.Total))
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
