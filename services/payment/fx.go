package payment

import (
	"go.uber.org/fx"

	"readingbot/pkg/db"
	"readingbot/pkg/yookassa"
)

var Module = fx.Module("payment.service",
	db.Models(&Payment{}),
	fx.Provide(NewService),
)

var GatewayModule = fx.Module("payment.gateway",
	yookassa.Module,
	fx.Provide(NewYooKassaGateway),
)
