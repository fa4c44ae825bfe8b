package api

import (
	"go.uber.org/fx"

	"readingbot/pkg/server"
	"readingbot/services/balance"
	"readingbot/services/payment"
	"readingbot/services/reading"
	"readingbot/services/webhook"
)

var Module = fx.Module("api",
	fx.Provide(
		func(s *payment.Service) Purchases { return s },
		func(s *balance.Service) Balances { return s },
		func(e *reading.Engine) Readings { return e },
		func(r *webhook.Reconciler) Syncer { return r },
		NewHandler,
	),
	server.Register[*Handler](),
)
