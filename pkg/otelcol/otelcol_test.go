package otelcol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"readingbot/pkg/config"
)

func TestExporterRejectsUnknownProtocol(t *testing.T) {
	cfg := &config.Config{}
	cfg.Otel.Addr = "localhost:4317"
	cfg.Otel.Protocol = "udp"

	_, err := Exporter(context.Background(), cfg)
	require.Error(t, err)
}

func TestExporterHTTP(t *testing.T) {
	cfg := &config.Config{}
	cfg.Otel.Addr = "localhost:4318"
	cfg.Otel.Protocol = "http"
	cfg.Otel.Insecure = true

	exp, err := Exporter(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, exp.Shutdown(context.Background()))
}
