package observability

import (
	"context"
	"testing"

	"quicklearner/config"
	"quicklearner/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitOTelDisabled(t *testing.T) {
	cfg := &config.Config{}
	shutdown, err := InitOTel(context.Background(), logger.NewNop(), cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitOTelStdout(t *testing.T) {
	cfg := &config.Config{Tracing: config.TracingConfig{Enabled: true, Exporter: "stdout", SampleRatio: 1}}
	shutdown, err := InitOTel(context.Background(), logger.NewNop(), cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.25, clampRatio(0.25))
}
