package reading

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"readingbot/services/content"
)

const (
	choicesPerRow = 2

	// Telegram rejects inline buttons whose callback data exceeds this.
	maxCallbackBytes = 64
)

// AnswerCallback is the callback data of a single-choice answer button. Long
// payloads are cut to fit the transport limit without splitting a rune.
func AnswerCallback(questionID int64, payload string) string {
	data := fmt.Sprintf("answer_%d_%s", questionID, payload)
	if len(data) <= maxCallbackBytes {
		return data
	}

	cut := maxCallbackBytes
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return data[:cut]
}

// renderStep turns a step into the messages sent for it, content blocks first
// and questions after, in their stored order.
func renderStep(step content.ScriptStep) []Message {
	msgs := make([]Message, 0, len(step.Step.Content)+len(step.Questions))

	for _, b := range step.Step.Content {
		switch b.Kind {
		case content.BlockImage:
			if b.FileID != "" {
				msgs = append(msgs, Message{PhotoID: b.FileID})
			}
		case content.BlockText:
			if strings.TrimSpace(b.Text) != "" {
				msgs = append(msgs, Message{Text: b.Text})
			}
		}
	}

	for _, q := range step.Questions {
		msgs = append(msgs, renderQuestion(q))
	}
	return msgs
}

func renderQuestion(q content.Question) Message {
	switch q.Type {
	case content.QuestionFreeText:
		return Message{Text: textQuestionPrompt + "\n\n" + q.Text}

	case content.QuestionSingleChoice:
		rows := make([][]Button, 0, len(q.Options))
		for _, opt := range q.Options {
			rows = append(rows, []Button{{
				Text:         optionLabel(opt),
				CallbackData: AnswerCallback(q.ID, opt.CallbackPayload()),
			}})
		}
		return Message{
			Text:     choiceQuestionPrompt + "\n\n" + q.Text,
			Controls: &Controls{Inline: rows},
		}

	case content.QuestionMultiChoice:
		var rows [][]string
		var row []string
		for _, opt := range q.Options {
			row = append(row, optionLabel(opt))
			if len(row) == choicesPerRow {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
		if !q.IsRequired {
			rows = append(rows, []string{ButtonSkip})
		}
		return Message{
			Text:     choiceQuestionPrompt + "\n\n" + q.Text,
			Controls: &Controls{Reply: rows, OneTime: true, Resize: true},
		}

	default:
		return Message{Text: q.Text}
	}
}

func optionLabel(opt content.Option) string {
	if opt.Label == "" {
		return defaultOptionLabel
	}
	return opt.Label
}
