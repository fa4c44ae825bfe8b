package bot

import (
	"go.uber.org/fx"

	"readingbot/pkg/server"
	"readingbot/services/balance"
	"readingbot/services/payment"
	"readingbot/services/reading"
	"readingbot/services/user"
)

// SenderModule provides the Telegram implementation of the outbound
// transport. Workers need it without the update handler.
var SenderModule = fx.Module("bot.sender",
	fx.Provide(
		NewTelegramSender,
		func(s *TelegramSender) reading.Sender { return s },
		func(s *TelegramSender) Messenger { return s },
	),
)

var Module = fx.Module("bot.handler",
	fx.Provide(
		func(s *user.Service) Users { return s },
		func(e *reading.Engine) Readings { return e },
		func(s *payment.Service) Purchases { return s },
		func(s *balance.Service) Balances { return s },
		NewHandler,
	),
	server.Register[*Handler](),
	fx.Invoke(ReceiveUpdates),
)
