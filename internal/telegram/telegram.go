// Package telegram is the bot's chat surface. It routes commands, menu
// buttons, model-switch callbacks, and free-form messages (text or photo) to
// the session store, the model registry, and the conversation relay.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/zrlgs/gembot/internal/log"
	"github.com/zrlgs/gembot/internal/registry"
	"github.com/zrlgs/gembot/internal/relay"
	"github.com/zrlgs/gembot/internal/session"
)

const defaultPhotoQuestion = "What's in this image?"

const helpText = `*Telegram Gemini Bot*

*Commands:*
/start \- Start the bot
/models \- View and switch models
/model <name\> \- Switch model directly
/new \- Clear conversation
/help \- Show this help

*Features:*
\* Text conversation
\* Image analysis
\* Multiple models
\* Independent user sessions
\* Markdown formatting support`

// Options tune the bot. DefaultModel is required; the rest default.
type Options struct {
	DefaultModel   string
	ChunkLimit     int
	TypingInterval time.Duration
}

// Bot wires the Bot API to the rest of the application.
type Bot struct {
	api          *bot.Bot
	sender       *Sender
	store        *session.Store
	registry     *registry.Registry
	relay        *relay.Relay
	logger       log.Logger
	defaultModel string
	httpClient   *http.Client
}

// New builds the bot, its sender, and its relay, and registers all update
// handlers. It does not touch the network; Run starts polling.
func New(token string, generator relay.Generator, store *session.Store, reg *registry.Registry, opts Options, logger log.Logger) (*Bot, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	t := &Bot{
		store:        store,
		registry:     reg,
		logger:       logger,
		defaultModel: opts.DefaultModel,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}

	api, err := bot.New(token, bot.WithDefaultHandler(t.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	t.api = api
	t.sender = NewSender(api)
	t.relay = relay.New(store, generator, t.sender, relay.Options{
		DefaultModel:   opts.DefaultModel,
		ChunkLimit:     opts.ChunkLimit,
		TypingInterval: opts.TypingInterval,
	}, logger)

	api.RegisterHandler(bot.HandlerTypeCallbackQueryData, modelCallbackPrefix, bot.MatchTypePrefix, t.handleModelCallback)
	return t, nil
}

// Run registers the command menu and polls for updates until ctx is
// cancelled.
func (t *Bot) Run(ctx context.Context) error {
	if err := t.setCommands(ctx); err != nil {
		return fmt.Errorf("registering bot commands: %w", err)
	}
	t.logger.Info("telegram bot started", "default_model", t.defaultModel)
	t.api.Start(ctx)
	return ctx.Err()
}

func (t *Bot) setCommands(ctx context.Context) error {
	_, err := t.api.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "Start the bot"},
			{Command: "models", Description: "View and switch models"},
			{Command: "model", Description: "Switch model by name"},
			{Command: "new", Description: "Clear conversation"},
			{Command: "help", Description: "Show help"},
		},
	})
	return err
}

// handleUpdate is the single entry point for message updates. Commands and
// menu buttons are dispatched explicitly; everything else is a chat turn.
func (t *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := senderID(msg)

	// Unrecognized slash commands fall through to the model as chat text.
	if cmd, args, ok := splitCommand(msg.Text); ok && knownCommand(cmd) {
		t.handleCommand(ctx, userID, chatID, cmd, args)
		return
	}
	if cmd, ok := menuCommand(msg.Text); ok {
		t.handleCommand(ctx, userID, chatID, cmd, "")
		return
	}
	t.handleChat(ctx, userID, chatID, msg)
}

func (t *Bot) handleCommand(ctx context.Context, userID, chatID int64, cmd, args string) {
	t.logger.Debug("command received", "command", cmd, "user_id", userID)
	switch cmd {
	case "start":
		t.handleStart(ctx, userID, chatID)
	case "help":
		t.sendMarkdown(ctx, chatID, helpText)
	case "models":
		t.handleModels(ctx, userID, chatID)
	case "model":
		if args == "" {
			t.handleModels(ctx, userID, chatID)
			return
		}
		t.handleSwitch(ctx, userID, chatID, args)
	case "new":
		t.store.Reset(userID, t.defaultModel)
		t.sendPlainLogged(ctx, chatID, "🧹 Memory cleared")
	case "settings":
		t.sendPlainLogged(ctx, chatID, "⚙️ Settings: Use /model <name> to switch models")
	}
}

func (t *Bot) handleStart(ctx context.Context, userID, chatID int64) {
	model := t.store.ModelName(userID, t.defaultModel)
	display := t.registry.DisplayName(ctx, model)
	text := "Gemini Bot Started\n\nCurrent model: " + display + "\n\nUse the menu below or type commands:"
	_, err := t.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: mainMenu(),
	})
	if err != nil {
		t.logger.Error("start reply failed", "chat_id", chatID, "error", err)
	}
}

func (t *Bot) handleModels(ctx context.Context, userID, chatID int64) {
	catalog := t.registry.Models(ctx)
	if len(catalog) == 0 {
		t.sendPlainLogged(ctx, chatID, "❌ Failed to fetch models. Please try again later.")
		return
	}

	current := t.store.ModelName(userID, t.defaultModel)
	currentDisplay := current
	if name, ok := catalog[current]; ok {
		currentDisplay = name
	}

	text := fmt.Sprintf("📋 *Available Models* \\(%d found\\)\n\nCurrent: `%s`\n\nClick to switch:", len(catalog), currentDisplay)
	_, err := t.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdown,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: modelButtons(catalog, current)},
	})
	if err != nil {
		t.logger.Error("model list reply failed", "chat_id", chatID, "error", err)
	}
}

func (t *Bot) handleSwitch(ctx context.Context, userID, chatID int64, modelID string) {
	if _, err := t.store.SwitchModel(userID, modelID); err != nil {
		t.logger.Warn("model switch rejected", "user_id", userID, "model", modelID, "error", err)
		t.sendPlainLogged(ctx, chatID, fmt.Sprintf("❌ Switch failed: %v", err))
		return
	}
	display := t.registry.DisplayName(ctx, modelID)
	t.logger.Info("model switched", "user_id", userID, "model", modelID)
	t.sendMarkdown(ctx, chatID, fmt.Sprintf("✅ Switched to: `%s`", display))
}

// handleModelCallback serves the inline keyboard buttons. The prompt message
// is edited in place as the acknowledgement.
func (t *Bot) handleModelCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}
	if _, err := t.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: q.ID}); err != nil {
		t.logger.Debug("callback ack failed", "error", err)
	}
	msg := q.Message.Message
	if msg == nil {
		return
	}

	modelID := strings.TrimPrefix(q.Data, modelCallbackPrefix)
	userID := q.From.ID
	chatID := msg.Chat.ID

	if _, err := t.store.SwitchModel(userID, modelID); err != nil {
		t.logger.Warn("model switch rejected", "user_id", userID, "model", modelID, "error", err)
		t.editLogged(ctx, chatID, msg.ID, fmt.Sprintf("❌ Switch failed: %v", err), "")
		return
	}
	display := t.registry.DisplayName(ctx, modelID)
	t.logger.Info("model switched", "user_id", userID, "model", modelID)
	text := fmt.Sprintf("✅ Switched to: `%s`\n\nMemory cleared, ready for new conversation\\!", display)
	t.editLogged(ctx, chatID, msg.ID, text, models.ParseModeMarkdown)
}

// handleChat forwards a free-form message through the relay. Photos ride
// along as an image part; the caption (or a stock question) is the text.
func (t *Bot) handleChat(ctx context.Context, userID, chatID int64, msg *models.Message) {
	in := relay.Input{Text: msg.Text}
	if in.Text == "" {
		in.Text = msg.Caption
	}

	if len(msg.Photo) > 0 {
		if in.Text == "" {
			in.Text = defaultPhotoQuestion
		}
		mime, data, err := t.downloadPhoto(ctx, msg.Photo)
		if err != nil {
			t.logger.Error("photo download failed", "chat_id", chatID, "error", err)
			t.sendPlainLogged(ctx, chatID, "⚠️ Could not download that photo. Please try again.")
			return
		}
		in.ImageMIME = mime
		in.ImageData = data
	}

	if in.Text == "" && len(in.ImageData) == 0 {
		return
	}

	// The relay notifies the user on failure; nothing more to send here.
	if err := t.relay.HandleTurn(ctx, userID, chatID, in); err != nil {
		t.logger.Error("turn failed", "user_id", userID, "chat_id", chatID, "error", err)
	}
}

// downloadPhoto fetches the largest available size of an inbound photo.
// Telegram serves photo renditions as JPEG.
func (t *Bot) downloadPhoto(ctx context.Context, sizes []models.PhotoSize) (string, []byte, error) {
	// Sizes arrive ordered smallest to largest.
	fileID := sizes[len(sizes)-1].FileID

	f, err := t.api.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", nil, fmt.Errorf("resolving photo file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.api.FileDownloadLink(f), nil)
	if err != nil {
		return "", nil, fmt.Errorf("building download request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("downloading photo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("downloading photo: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("reading photo body: %w", err)
	}
	return "image/jpeg", data, nil
}

func (t *Bot) sendMarkdown(ctx context.Context, chatID int64, text string) {
	_, err := t.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		t.logger.Error("reply failed", "chat_id", chatID, "error", err)
	}
}

func (t *Bot) sendPlainLogged(ctx context.Context, chatID int64, text string) {
	if err := t.sender.SendPlain(ctx, chatID, text); err != nil {
		t.logger.Error("reply failed", "chat_id", chatID, "error", err)
	}
}

func (t *Bot) editLogged(ctx context.Context, chatID int64, messageID int, text string, parseMode models.ParseMode) {
	_, err := t.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: parseMode,
	})
	if err != nil {
		t.logger.Error("message edit failed", "chat_id", chatID, "error", err)
	}
}

func senderID(msg *models.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

// splitCommand parses "/cmd@bot args" into its command word and argument
// string. ok is false for non-command text.
func splitCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	word, rest, _ := strings.Cut(text[1:], " ")
	if word == "" {
		return "", "", false
	}
	// Group chats address commands as /cmd@botname.
	word, _, _ = strings.Cut(word, "@")
	return word, strings.TrimSpace(rest), true
}

func knownCommand(cmd string) bool {
	switch cmd {
	case "start", "help", "models", "model", "new", "settings":
		return true
	}
	return false
}

// menuCommand maps a reply-keyboard button press to its command.
func menuCommand(text string) (string, bool) {
	switch text {
	case menuModels:
		return "models", true
	case menuNewChat:
		return "new", true
	case menuHelp:
		return "help", true
	case menuSettings:
		return "settings", true
	}
	return "", false
}
