package api

import (
	"bytes"
	"context"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-inference/internal/app"
	"media-inference/pkg/config"
)

func TestApp_BuildServesDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Monitoring.Prometheus.Enable = true
	b, err := app.NewBootstrap(context.Background(), cfg)
	require.NoError(t, err)

	a, err := NewApp(b)
	require.NoError(t, err)
	h, err := a.Build(":0")
	require.NoError(t, err)

	w := ut.PerformRequest(h.Engine, "GET", "/", nil)
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), `"tone"`)

	body := []byte(`{"text":"I love this movie! It's amazing!"}`)
	w = ut.PerformRequest(h.Engine, "POST", "/tone/", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), `"label"`)

	w = ut.PerformRequest(h.Engine, "GET", "/metrics", nil)
	assert.Equal(t, 200, w.Result().StatusCode())

	require.NoError(t, b.Close())
}

func TestNewApp_RequiresBootstrap(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
