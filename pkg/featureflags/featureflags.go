// Package featureflags reads runtime switches from Flagsmith.
package featureflags

import (
	"context"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"readingbot/pkg/config"
	"readingbot/pkg/logger"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

// Flags known to the service.
const (
	PurchasesEnabled = "purchases_enabled"
)

type FeatureFlag interface {
	// Enabled evaluates feature for identifier. It returns fallback when
	// the flag is unknown or Flagsmith is unreachable.
	Enabled(ctx context.Context, feature, identifier string, fallback bool) bool
}

// identityFlags is the part of the Flagsmith client used here.
type identityFlags interface {
	GetIdentityFlags(identifier string, traits []*flagsmith.Trait) (flagsmith.Flags, error)
}

type featureflag struct {
	client identityFlags
}

func ProvideFeatureFlag(cfg *config.Config) FeatureFlag {
	if cfg.Flagsmith.ApiKey == "" {
		return &featureflag{}
	}

	opts := []flagsmith.Option{flagsmith.WithAnalytics()}
	if cfg.Flagsmith.Addr != "" {
		opts = append(opts, flagsmith.WithBaseURL(cfg.Flagsmith.Addr))
	}

	return &featureflag{
		client: flagsmith.NewClient(cfg.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) Enabled(ctx context.Context, feature, identifier string, fallback bool) bool {
	if s.client == nil {
		return fallback
	}

	flags, err := s.client.GetIdentityFlags(identifier, nil)
	if err != nil {
		logger.L(ctx).Warn("feature flags unavailable", zap.String("feature", feature), zap.Error(err))
		return fallback
	}

	enabled, err := flags.IsFeatureEnabled(feature)
	if err != nil {
		return fallback
	}
	return enabled
}
