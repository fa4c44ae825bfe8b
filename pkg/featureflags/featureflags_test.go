package featureflags

import (
	"context"
	"errors"
	"testing"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"readingbot/pkg/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type failingClient struct{ calls int }

func (c *failingClient) GetIdentityFlags(identifier string, traits []*flagsmith.Trait) (flagsmith.Flags, error) {
	c.calls++
	return flagsmith.Flags{}, errors.New("flagsmith: 503")
}

func TestEnabledWithoutAPIKeyUsesFallback(t *testing.T) {
	ff := ProvideFeatureFlag(&config.Config{})

	require.True(t, ff.Enabled(context.Background(), PurchasesEnabled, "user-1", true))
	require.False(t, ff.Enabled(context.Background(), PurchasesEnabled, "user-1", false))
}

func TestEnabledFallsBackWhenUnreachable(t *testing.T) {
	client := &failingClient{}
	ff := &featureflag{client: client}

	require.True(t, ff.Enabled(context.Background(), PurchasesEnabled, "user-1", true))
	require.Equal(t, 1, client.calls)
}
