package gen

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"readingbot/pkg/config"
)

var Module = fx.Module("snowflake",
	fx.Provide(NewNode),
)

// NewNode builds the process-wide id generator. Every replica needs its own
// node id.
func NewNode(cfg *config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
