package bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"readingbot/services/reading"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	err      error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: f.err == nil}, f.err
}

func TestSendTextWithInlineKeyboard(t *testing.T) {
	api := &fakeAPI{}
	s := &TelegramSender{api: api}

	err := s.Send(context.Background(), "42", reading.Message{
		Text: "Pick",
		Controls: &reading.Controls{Inline: [][]reading.Button{
			{{Text: "A", CallbackData: "answer_1_a"}},
			{{Text: "Pay", URL: "https://pay.example"}},
		}},
	})
	require.NoError(t, err)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	require.Equal(t, int64(42), msg.ChatID)
	require.Equal(t, "Pick", msg.Text)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Equal(t, "answer_1_a", *markup.InlineKeyboard[0][0].CallbackData)
	require.Equal(t, "https://pay.example", *markup.InlineKeyboard[1][0].URL)
}

func TestSendReplyKeyboard(t *testing.T) {
	api := &fakeAPI{}
	s := &TelegramSender{api: api}

	require.NoError(t, s.Send(context.Background(), "42", reading.Message{
		Text:     "Which?",
		Controls: &reading.Controls{Reply: [][]string{{"A", "B"}, {"C"}}, OneTime: true, Resize: true},
	}))

	msg := api.sent[0].(tgbotapi.MessageConfig)
	kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	require.True(t, kb.OneTimeKeyboard)
	require.True(t, kb.ResizeKeyboard)
	require.Len(t, kb.Keyboard, 2)
	require.Equal(t, "B", kb.Keyboard[0][1].Text)
}

func TestSendPhoto(t *testing.T) {
	api := &fakeAPI{}
	s := &TelegramSender{api: api}

	require.NoError(t, s.Send(context.Background(), "42", reading.Message{PhotoID: "file-1"}))

	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	require.Equal(t, tgbotapi.FileID("file-1"), photo.File)
}

func TestSendErrors(t *testing.T) {
	api := &fakeAPI{err: errors.New("boom")}
	s := &TelegramSender{api: api}

	require.Error(t, s.Send(context.Background(), "not-a-chat", reading.Message{Text: "x"}))
	require.Error(t, s.Send(context.Background(), "42", reading.Message{Text: "x"}))
	require.Error(t, s.AnswerCallback(context.Background(), "cb", "ok"))
}
