package balance

import (
	"go.uber.org/fx"

	"readingbot/pkg/db"
)

var Module = fx.Module("balance.service",
	db.Models(&EntitlementBalance{}, &EntitlementEntry{}),
	fx.Provide(NewService),
)
