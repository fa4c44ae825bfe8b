package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"readingbot/pkg/config"
	"readingbot/pkg/logger"
	"readingbot/services/balance"
	"readingbot/services/catalog"
	"readingbot/services/content"
	"readingbot/services/payment"
	"readingbot/services/reading"
	"readingbot/services/user"
)

type Users interface {
	Register(ctx context.Context, p user.Profile) (*user.User, error)
}

type Readings interface {
	Start(ctx context.Context, userID, label string) (string, error)
	Cancel(ctx context.Context, sessionID string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*reading.Session, error)
}

type Purchases interface {
	CreatePurchase(ctx context.Context, userID, packageCode string) (*payment.Purchase, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*payment.Payment, error)
}

type Balances interface {
	Get(ctx context.Context, userID string) (int64, error)
}

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	reading.Sender
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

const paymentHistoryLimit = 10

type Handler struct {
	users      Users
	readings   Readings
	dispatcher reading.Dispatcher
	purchases  Purchases
	balances   Balances
	catalog    *catalog.Catalog
	out        Messenger
	adminID    int64
}

type HandlerParams struct {
	fx.In
	Config     *config.Config
	Users      Users
	Readings   Readings
	Dispatcher reading.Dispatcher
	Purchases  Purchases
	Balances   Balances
	Catalog    *catalog.Catalog
	Messenger  Messenger
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		users:      p.Users,
		readings:   p.Readings,
		dispatcher: p.Dispatcher,
		purchases:  p.Purchases,
		balances:   p.Balances,
		catalog:    p.Catalog,
		out:        p.Messenger,
		adminID:    p.Config.Telegram.AdminID,
	}
}

// HandleUpdate routes one Bot API update. Errors are reported to the user
// and logged; only transport failures are returned.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	switch {
	case upd.CallbackQuery != nil:
		return h.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		return h.handleMessage(ctx, upd.Message)
	default:
		return nil
	}
}

func (h *Handler) register(ctx context.Context, from *tgbotapi.User) (*user.User, error) {
	if from == nil {
		return nil, errors.New("update without sender")
	}
	firstName := from.FirstName
	if firstName == "" {
		firstName = "Пользователь"
	}
	return h.users.Register(ctx, user.Profile{
		TelegramID: from.ID,
		FirstName:  firstName,
		LastName:   from.LastName,
		Username:   from.UserName,
		IsBot:      from.IsBot,
	})
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chat := strconv.FormatInt(msg.Chat.ID, 10)
	log := logger.L(ctx).With(zap.Int64("chat_id", msg.Chat.ID))

	u, err := h.register(ctx, msg.From)
	if err != nil {
		log.Error("failed to register user", zap.Error(err))
		return h.say(ctx, chat, msgGenericError)
	}
	log = log.With(zap.String("user_id", u.ID))

	command := msg.Command()
	if command == "" && msg.Caption != "" && strings.HasPrefix(msg.Caption, "/get_photo_id") {
		command = "get_photo_id"
	}

	switch command {
	case "start", "help":
		return h.say(ctx, chat, msgStart)

	case "read", "reading":
		return h.startReading(ctx, chat, u.ID, strings.TrimSpace(msg.CommandArguments()))

	case "buy":
		return h.out.Send(ctx, chat, h.buyMenu())

	case "balance":
		n, err := h.balances.Get(ctx, u.ID)
		if err != nil {
			log.Error("failed to read balance", zap.Error(err))
			return h.say(ctx, chat, msgGenericError)
		}
		return h.say(ctx, chat, fmt.Sprintf(msgBalance, n))

	case "payments":
		return h.paymentHistory(ctx, chat, u.ID)

	case "cancel":
		return h.cancelReading(ctx, chat, u.ID)

	case "get_photo_id":
		return h.photoID(ctx, chat, msg)

	case "":
		if msg.Text == reading.ButtonSkip {
			return h.say(ctx, chat, msgSkipAccepted)
		}
		// free text answers are acknowledged only
		log.Debug("free text message", zap.Int("length", len(msg.Text)))
		return nil

	default:
		return h.say(ctx, chat, msgHelp)
	}
}

func (h *Handler) startReading(ctx context.Context, chat, userID, label string) error {
	log := logger.L(ctx).With(zap.String("user_id", userID), zap.String("label", label))

	sessionID, err := h.readings.Start(ctx, userID, label)
	switch {
	case errors.Is(err, content.ErrEmptyScript):
		return h.say(ctx, chat, msgEmptyScript)
	case errors.Is(err, balance.ErrInsufficientBalance):
		return h.say(ctx, chat, msgNoBalance)
	case err != nil:
		log.Error("failed to start reading", zap.Error(err))
		return h.say(ctx, chat, msgGenericError)
	}

	name := label
	if name == "" {
		name = msgReadingDefaultName
	}
	if err := h.say(ctx, chat, fmt.Sprintf(msgReadingStarted, name)); err != nil {
		return err
	}

	if err := h.dispatcher.Dispatch(ctx, sessionID); err != nil {
		log.Error("failed to dispatch reading", zap.String("session_id", sessionID), zap.Error(err))
		return h.say(ctx, chat, msgGenericError)
	}
	return nil
}

func (h *Handler) cancelReading(ctx context.Context, chat, userID string) error {
	sessions, err := h.readings.ListByUser(ctx, userID, 5)
	if err != nil {
		logger.L(ctx).Error("failed to list readings", zap.String("user_id", userID), zap.Error(err))
		return h.say(ctx, chat, msgGenericError)
	}

	for _, s := range sessions {
		if s.Status.IsTerminal() {
			continue
		}
		if err := h.readings.Cancel(ctx, s.ID); err != nil {
			logger.L(ctx).Error("failed to cancel reading", zap.String("session_id", s.ID), zap.Error(err))
			return h.say(ctx, chat, msgGenericError)
		}
		return h.say(ctx, chat, msgCancelled)
	}
	return h.say(ctx, chat, msgNothingToCancel)
}

func (h *Handler) buyMenu() reading.Message {
	rows := make([][]reading.Button, 0, len(h.catalog.List())+1)
	for _, pkg := range h.catalog.List() {
		rows = append(rows, []reading.Button{{
			Text:         fmt.Sprintf(msgPackageButton, pkg.EntitlementCount, pkg.Price.Decimal()),
			CallbackData: pkg.Code,
		}})
	}
	rows = append(rows, []reading.Button{{Text: buttonBackToMenu, CallbackData: callbackBackToMenu}})

	return reading.Message{Text: msgBuyMenu, Controls: &reading.Controls{Inline: rows}}
}

func (h *Handler) paymentHistory(ctx context.Context, chat, userID string) error {
	payments, err := h.purchases.ListByUser(ctx, userID, paymentHistoryLimit)
	if err != nil {
		logger.L(ctx).Error("failed to list payments", zap.String("user_id", userID), zap.Error(err))
		return h.say(ctx, chat, msgGenericError)
	}
	if len(payments) == 0 {
		return h.say(ctx, chat, msgPaymentsEmpty)
	}

	lines := []string{msgPaymentsTitle}
	for _, p := range payments {
		icon, ok := paymentStatusIcon[string(p.Status)]
		if !ok {
			icon = "❓"
		}
		lines = append(lines, fmt.Sprintf(msgPaymentLine,
			icon, orderRef(p), p.Money().Decimal(), p.Currency,
			p.CreatedAt.Format("02.01.2006 15:04"), p.Status,
		))
	}
	return h.say(ctx, chat, strings.Join(lines, "\n\n"))
}

func (h *Handler) photoID(ctx context.Context, chat string, msg *tgbotapi.Message) error {
	if h.adminID == 0 || msg.From == nil || msg.From.ID != h.adminID {
		return h.say(ctx, chat, msgAdminOnly)
	}
	if len(msg.Photo) == 0 {
		return h.say(ctx, chat, msgPhotoIDHelp)
	}
	// the last size is the largest
	largest := msg.Photo[len(msg.Photo)-1]
	return h.say(ctx, chat, fmt.Sprintf(msgPhotoID, largest.FileID))
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	log := logger.L(ctx).With(zap.String("callback", cb.Data))

	if cb.Message == nil {
		return h.out.AnswerCallback(ctx, cb.ID, "")
	}
	chat := strconv.FormatInt(cb.Message.Chat.ID, 10)

	switch {
	case strings.HasPrefix(cb.Data, "buy_"):
		u, err := h.register(ctx, cb.From)
		if err != nil {
			log.Error("failed to register user", zap.Error(err))
			return h.out.AnswerCallback(ctx, cb.ID, msgPaymentError)
		}
		return h.purchase(ctx, cb, chat, u.ID)

	case strings.HasPrefix(cb.Data, "answer_"):
		return h.out.AnswerCallback(ctx, cb.ID, msgAnswerAccepted)

	case cb.Data == callbackBackToMenu:
		if err := h.out.AnswerCallback(ctx, cb.ID, ""); err != nil {
			return err
		}
		return h.say(ctx, chat, msgBackToMenu)

	default:
		log.Debug("unhandled callback")
		return h.out.AnswerCallback(ctx, cb.ID, "")
	}
}

func (h *Handler) purchase(ctx context.Context, cb *tgbotapi.CallbackQuery, chat, userID string) error {
	purchase, err := h.purchases.CreatePurchase(ctx, userID, cb.Data)
	switch {
	case errors.Is(err, catalog.ErrUnknownPackage):
		return h.out.AnswerCallback(ctx, cb.ID, msgUnknownPackage)
	case errors.Is(err, payment.ErrPurchasesOff):
		return h.out.AnswerCallback(ctx, cb.ID, msgPurchasesOff)
	case err != nil:
		logger.L(ctx).Error("failed to create purchase", zap.String("user_id", userID), zap.Error(err))
		return h.out.AnswerCallback(ctx, cb.ID, msgPaymentError)
	}

	if err := h.out.Send(ctx, chat, reading.Message{
		Text: fmt.Sprintf(msgPaymentDetails, purchase.Description, purchase.Amount.Decimal(), purchase.Amount.Currency),
		Controls: &reading.Controls{Inline: [][]reading.Button{
			{{Text: buttonPay, URL: purchase.RedirectURL}},
			{{Text: buttonBackToMenu, CallbackData: callbackBackToMenu}},
		}},
	}); err != nil {
		return err
	}
	return h.out.AnswerCallback(ctx, cb.ID, "")
}

func (h *Handler) say(ctx context.Context, chat, text string) error {
	return h.out.Send(ctx, chat, reading.Message{Text: text})
}

func orderRef(p *payment.Payment) string {
	if p.Number != "" {
		return p.Number
	}
	return p.ID
}
