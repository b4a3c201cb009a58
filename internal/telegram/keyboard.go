package telegram

import (
	"sort"

	"github.com/go-telegram/bot/models"
)

// Menu button labels. These double as routing keys for plain-text messages.
const (
	menuModels   = "📋 Models"
	menuNewChat  = "🆕 New Chat"
	menuHelp     = "❓ Help"
	menuSettings = "⚙️ Settings"
)

const (
	modelCallbackPrefix = "model:"
	buttonTextLimit     = 40
	currentModelMarker  = "✓ "
)

// mainMenu is the persistent reply keyboard shown on /start.
func mainMenu() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: menuModels}, {Text: menuNewChat}},
			{{Text: menuHelp}, {Text: menuSettings}},
		},
		ResizeKeyboard: true,
	}
}

// modelButtons builds one button per model, sorted by id, with the current
// model check-marked. Button text is truncated to the Bot API's practical
// limit; callback data carries the untruncated id.
func modelButtons(catalog map[string]string, current string) [][]models.InlineKeyboardButton {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]models.InlineKeyboardButton, 0, len(ids))
	for _, id := range ids {
		label := catalog[id]
		if id == current {
			label = currentModelMarker + label
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         truncateButton(label),
			CallbackData: modelCallbackPrefix + id,
		}})
	}
	return rows
}

// truncateButton caps a label at buttonTextLimit runes without tearing one.
func truncateButton(s string) string {
	runes := []rune(s)
	if len(runes) <= buttonTextLimit {
		return s
	}
	return string(runes[:buttonTextLimit])
}
