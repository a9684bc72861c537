package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceClient_Classify(t *testing.T) {
	for name, body := range map[string]string{
		"nested": `[[{"label":"NEGATIVE","score":0.02},{"label":"POSITIVE","score":0.98}]]`,
		"flat":   `[{"label":"NEGATIVE","score":0.02},{"label":"POSITIVE","score":0.98}]`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/models/distilbert", r.URL.Path)
				assert.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			c, err := NewHuggingFaceClient(Options{BaseURL: srv.URL, Model: "distilbert", APIKey: "hf_token"})
			require.NoError(t, err)
			pred, err := c.Classify(context.Background(), "I love this product")
			require.NoError(t, err)
			assert.Equal(t, Prediction{Label: "POSITIVE", Score: 0.98}, pred)
		})
	}
}

func TestHuggingFaceClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		dec := wav.NewDecoder(bytes.NewReader(data))
		assert.True(t, dec.IsValidFile())
		assert.Equal(t, uint32(16000), dec.SampleRate)
		assert.Equal(t, uint16(1), dec.NumChans)
		_, _ = io.WriteString(w, `{"text":"HELLO WORLD"}`)
	}))
	defer srv.Close()

	c, err := NewHuggingFaceClient(Options{BaseURL: srv.URL, Model: "wav2vec2"})
	require.NoError(t, err)
	text, err := c.Transcribe(context.Background(), []float32{0, 0.5, -0.5, 1}, 16000)
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD", text)
}

func TestHuggingFaceClient_ModelLoading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"Model distilbert is currently loading"}`)
	}))
	defer srv.Close()

	c, err := NewHuggingFaceClient(Options{BaseURL: srv.URL, Model: "distilbert"})
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), "some text here")
	require.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "currently loading")
}
