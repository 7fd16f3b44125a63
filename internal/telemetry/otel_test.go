package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
)

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions("http://collector:4318/v1/traces"), 3)
	assert.Len(t, exporterOptions("https://collector.example.com/otlp"), 2)
	assert.Len(t, exporterOptions("collector:4318"), 3)
	assert.Len(t, exporterOptions(""), 3)
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "reconciler", config.TelemetryConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
