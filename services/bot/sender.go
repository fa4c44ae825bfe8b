package bot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"readingbot/pkg/errutil"
	"readingbot/services/reading"
)

// botAPI is the subset of *tgbotapi.BotAPI used here.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramSender delivers scenario and bot messages through the Bot API.
type TelegramSender struct {
	api botAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

func (s *TelegramSender) Send(ctx context.Context, recipient string, msg reading.Message) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return errutil.BadRequest("invalid telegram chat id", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.api.Send(buildChattable(chatID, msg)); err != nil {
		return errutil.BadGateway("telegram send failed", err)
	}
	return nil
}

func (s *TelegramSender) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := s.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return errutil.BadGateway("telegram callback answer failed", err)
	}
	return nil
}

func buildChattable(chatID int64, msg reading.Message) tgbotapi.Chattable {
	if msg.PhotoID != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(msg.PhotoID))
		photo.Caption = msg.Text
		if markup := replyMarkup(msg.Controls); markup != nil {
			photo.ReplyMarkup = markup
		}
		return photo
	}

	m := tgbotapi.NewMessage(chatID, msg.Text)
	if markup := replyMarkup(msg.Controls); markup != nil {
		m.ReplyMarkup = markup
	}
	return m
}

func replyMarkup(c *reading.Controls) any {
	switch {
	case c == nil:
		return nil

	case len(c.Inline) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(c.Inline))
		for _, row := range c.Inline {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				if b.URL != "" {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
					continue
				}
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData))
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)

	case len(c.Reply) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(c.Reply))
		for _, row := range c.Reply {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, text := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(text))
			}
			rows = append(rows, buttons)
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.OneTimeKeyboard = c.OneTime
		kb.ResizeKeyboard = c.Resize
		return kb

	default:
		return nil
	}
}
