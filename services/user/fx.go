package user

import (
	"go.uber.org/fx"

	"readingbot/pkg/db"
	"readingbot/services/reading"
)

var Module = fx.Module("user.service",
	db.Models(&User{}),
	fx.Provide(
		NewService,
		func(s *Service) reading.Recipients { return s },
	),
)
