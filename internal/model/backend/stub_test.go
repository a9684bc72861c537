package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubClient_Deterministic(t *testing.T) {
	ctx := context.Background()
	s := NewStubClient(10)

	p1, err := s.Classify(ctx, "this movie was great")
	require.NoError(t, err)
	p2, _ := s.Classify(ctx, "this movie was great")
	assert.Equal(t, p1, p2)
	assert.Contains(t, []string{"POSITIVE", "NEGATIVE"}, p1.Label)
	assert.GreaterOrEqual(t, p1.Score, 0.5)

	in := Tensor{Shape: []int64{1, 4}, Data: []float32{0.1, 0.2, 0.3, 0.4}}
	logits, err := s.Logits(ctx, in)
	require.NoError(t, err)
	assert.Len(t, logits, 10)

	_, err = s.Logits(ctx, Tensor{Shape: []int64{1, 5}, Data: []float32{1}})
	assert.ErrorIs(t, err, ErrBackendInference)

	pred, err := s.ClassifyTensor(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, stubActions, pred.Label)

	text, err := s.Transcribe(ctx, make([]float32, 16000), 16000)
	require.NoError(t, err)
	assert.Empty(t, text)
	text, err = s.Transcribe(ctx, []float32{0.5, -0.5}, 16000)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestFactory(t *testing.T) {
	tc, err := NewTextClassifier("stub", Options{})
	require.NoError(t, err)
	assert.Equal(t, "stub", tc.Provider())

	_, err = NewTensorClassifier("huggingface", Options{}, 1000)
	assert.Error(t, err)

	sr, err := NewSpeechRecognizer("huggingface", Options{Model: "wav2vec2"})
	require.NoError(t, err)
	assert.Equal(t, "huggingface", sr.Provider())

	lc, err := NewLabeledClassifier("kserve", Options{})
	assert.Error(t, err)
	assert.Nil(t, lc)

	_, err = NewTextClassifier("onnx", Options{})
	assert.Error(t, err)
}
