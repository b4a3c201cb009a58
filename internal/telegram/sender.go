package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/zrlgs/gembot/internal/relay"
)

// Sender delivers messages through the Bot API and implements the relay's
// Platform interface.
type Sender struct {
	bot *bot.Bot
}

func NewSender(b *bot.Bot) *Sender {
	return &Sender{bot: b}
}

// SendFormatted delivers text as MarkdownV2. A Bad Request caused by the
// markup itself is classified as relay.ErrUnsupportedFormatting so the relay
// can fall back to plain text for that chunk.
func (s *Sender) SendFormatted(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return classifySendError(err)
	}
	return nil
}

func (s *Sender) SendPlain(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

func (s *Sender) SendTyping(ctx context.Context, chatID int64) error {
	_, err := s.bot.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	return err
}

// classifySendError tags entity-parse rejections with the relay sentinel.
// The Bot API reports these as a 400 with a "can't parse entities"
// description; everything else passes through unchanged.
func classifySendError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "can't parse entities") {
		return fmt.Errorf("%w: %w", relay.ErrUnsupportedFormatting, err)
	}
	return err
}
