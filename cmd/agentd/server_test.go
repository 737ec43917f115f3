package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luminon/agentd/config"
)

// Builds the whole service with defaults (fake model, degraded guard,
// memory store) and runs one turn through the real HTTP stack.
func TestApplicationEndToEnd(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.HTTPPort = 0
	cfg.Search.Provider = "none"

	app, err := buildApplication(cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.shutdown(context.Background())

	require.NoError(t, app.manager.Start())
	defer app.manager.Shutdown(context.Background())
	base := "http://" + app.manager.Addr()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := json.Marshal(map[string]string{"message": "what is 2+2?"})
	resp, err = http.Post(base+"/invoke", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			RunID    string `json:"run_id"`
			ThreadID string `json:"thread_id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.RunID)
	assert.NotEmpty(t, envelope.Data.ThreadID)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuildApplicationRejectsBadAuthMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Auth.Mode = "kerberos"
	_, err := buildApplication(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported auth mode")
}
