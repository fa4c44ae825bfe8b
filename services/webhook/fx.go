package webhook

import (
	"go.uber.org/fx"

	"readingbot/pkg/server"
	"readingbot/services/balance"
	"readingbot/services/payment"
)

var Module = fx.Module("webhook.reconciler",
	fx.Provide(
		ProvideVerifier,
		func(s *payment.Service) Ledger { return s },
		func(s *balance.Service) Granter { return s },
		NewReconciler,
		NewHandler,
	),
	server.Register[*Handler](),
)

// WorkerModule polls the gateway for payments whose notification is overdue.
var WorkerModule = fx.Module("webhook.sweeper",
	fx.Provide(
		func(s *payment.Service) PendingLister { return s },
		NewSweeper,
		NewSyncHandler,
	),
	fx.Invoke(RegisterSyncHandler, StartSweeper),
)
