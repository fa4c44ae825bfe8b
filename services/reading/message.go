package reading

import "context"

const (
	textQuestionPrompt   = "✍️ Напишите ответ в сообщении:"
	choiceQuestionPrompt = "👇 Выберите вариант:"
	defaultOptionLabel   = "Опция"

	ButtonSkip = "Пропустить"

	messageCompleted = "✨ Чтение завершено. Спасибо!"
	messageFailed    = "😔 Не удалось продолжить чтение. Попробуйте позже."
)

// Button is an inline button carrying either callback data or a link.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Controls are the interactive controls attached to a message. Inline and
// Reply are mutually exclusive.
type Controls struct {
	Inline  [][]Button `json:"inline,omitempty"`
	Reply   [][]string `json:"reply,omitempty"`
	OneTime bool       `json:"one_time,omitempty"`
	Resize  bool       `json:"resize,omitempty"`
}

type Message struct {
	Text     string    `json:"text,omitempty"`
	PhotoID  string    `json:"photo_id,omitempty"`
	Controls *Controls `json:"controls,omitempty"`
}

// Sender delivers rendered messages to a recipient on the messaging
// transport.
type Sender interface {
	Send(ctx context.Context, recipient string, msg Message) error
}

// Recipients resolves the transport address of a user.
type Recipients interface {
	Recipient(ctx context.Context, userID string) (string, error)
}
