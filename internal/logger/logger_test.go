package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"donezo/internal/logger"
)

func TestFromContext_AttachesRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := logger.Logger
	logger.Logger = zap.New(core)
	t.Cleanup(func() { logger.Logger = prev })

	ctx := logger.WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", logger.RequestID(ctx))

	logger.FromContext(ctx).Info("hello")
	logger.FromContext(context.Background()).Info("bare")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
}

func TestInit(t *testing.T) {
	prev := logger.Logger
	t.Cleanup(func() { logger.Logger = prev })

	require.NoError(t, logger.Init(true))
	logger.Info("development logger ready")
}
