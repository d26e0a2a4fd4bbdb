package main

import (
	"context"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestServe_LogsListenFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	err = serve(context.Background(), &http.Server{Addr: taken.Addr().String()}, zap.New(core))
	require.Error(t, err)

	stopped := logs.FilterMessage("server stopped").All()
	require.Len(t, stopped, 1)
	assert.Equal(t, zapcore.ErrorLevel, stopped[0].Level)
	assert.Contains(t, stopped[0].ContextMap()["error"], "address already in use")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	core, logs := observer.New(zapcore.InfoLevel)
	err := serve(ctx, &http.Server{Addr: "127.0.0.1:0"}, zap.New(core))
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Shutting down server").Len())
}
