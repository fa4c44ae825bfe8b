package reading

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"readingbot/pkg/config"
	"readingbot/pkg/db"
	"readingbot/pkg/task"
	"readingbot/services/balance"
)

var Module = fx.Module("reading.engine",
	db.Models(&Session{}),
	fx.Provide(
		func(s *balance.Service) Consumer { return s },
		provideCanceller,
		NewEngine,
	),
)

// DispatchModule picks how started sessions are played, per SCENARIO.DISPATCH.
var DispatchModule = fx.Module("reading.dispatch",
	fx.Provide(provideDispatcher),
)

// WorkerModule registers the per-step playback task on the asynq mux.
var WorkerModule = fx.Module("reading.worker",
	fx.Provide(NewQueueDispatcher, NewTaskHandler),
	fx.Invoke(RegisterTaskHandlers),
)

type cancellerParams struct {
	fx.In
	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

func provideCanceller(p cancellerParams) Canceller {
	if p.Redis == nil {
		return NewMemoryCanceller()
	}
	return NewRedisCanceller(p.Redis, p.Config.Scenario.CancelTTL)
}

type dispatcherParams struct {
	fx.In
	Config   *config.Config
	Engine   *Engine
	Enqueuer task.Enqueuer `optional:"true"`
}

func provideDispatcher(p dispatcherParams) (Dispatcher, error) {
	if p.Config.Scenario.Dispatch == "inline" {
		return NewInlineDispatcher(p.Engine), nil
	}
	if p.Enqueuer == nil {
		return nil, errors.New("SCENARIO.DISPATCH=queue requires the asynq client")
	}
	return NewQueueDispatcher(p.Enqueuer), nil
}
