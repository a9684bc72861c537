package tone

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-inference/internal/model/backend"
)

type fakeClassifier struct {
	pred  backend.Prediction
	err   error
	calls int
	last  string
}

func (f *fakeClassifier) Provider() string { return "fake" }
func (f *fakeClassifier) Close() error     { return nil }
func (f *fakeClassifier) Classify(ctx context.Context, text string) (backend.Prediction, error) {
	f.calls++
	f.last = text
	return f.pred, f.err
}

func TestAdapter_Infer(t *testing.T) {
	f := &fakeClassifier{pred: backend.Prediction{Label: "POSITIVE", Score: 0.9998}}
	res := NewAdapter(f).Infer(context.Background(), "I love this movie")

	require.True(t, res.IsOK())
	assert.Equal(t, backend.Prediction{Label: "POSITIVE", Score: 0.9998}, res.Value())
	assert.Equal(t, "I love this movie", f.last)
	assert.Equal(t, 1, f.calls)
}

func TestAdapter_BackendError(t *testing.T) {
	f := &fakeClassifier{err: errors.New("tokenizer exploded")}
	res := NewAdapter(f).Infer(context.Background(), "whatever text")

	require.False(t, res.IsOK())
	assert.Equal(t, map[string]string{"error": "tokenizer exploded"}, res.Payload())
}
