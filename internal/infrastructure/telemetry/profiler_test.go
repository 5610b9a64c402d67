package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_InvalidConfig(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "xb"}, nil)
	assert.ErrorIs(t, err, ErrProfilerConfig)

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, nil)
	assert.ErrorIs(t, err, ErrProfilerConfig)
}

func TestSanitizeLabels(t *testing.T) {
	args := sanitizeLabels(map[string]string{
		ProfilingLabelProvider: strings.Repeat("x", 100),
		"request_id":           "req-1",
		"empty":                "",
	})
	require.Len(t, args, 2)
	assert.Equal(t, ProfilingLabelProvider, args[0])
	assert.Len(t, args[1], maxLabelValueLength)
}

func TestWithProfilingLabels_RunsFn(t *testing.T) {
	ran := 0
	WithProfilingLabels(context.Background(), nil, func(context.Context) { ran++ })
	WithProfilingLabels(context.Background(), map[string]string{ProfilingLabelCountry: "DE"}, func(context.Context) { ran++ })
	assert.Equal(t, 2, ran)
}

func TestLoggerProvider_DisabledBridgeReturnsBase(t *testing.T) {
	base := zaptest.NewLogger(t)
	lp, err := NewLoggerProvider(context.Background(), Config{Enabled: true}, base)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}
