package content

import (
	"go.uber.org/fx"

	"readingbot/pkg/config"
	"readingbot/pkg/db"
)

var Module = fx.Module("content.store",
	db.Models(&Step{}, &Question{}),
	fx.Provide(
		NewStore,
		provideScript,
	),
)

func provideScript(cfg *config.Config, store *Store) Script {
	if cfg.Scenario.CacheTTL <= 0 {
		return store
	}
	return NewCachedStore(store, cfg.Scenario.CacheTTL)
}
