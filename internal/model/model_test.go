// Copyright 2026 fanjia1024
// Tests for inference result, guard and modality registry

package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "media-inference/pkg/errors"
)

func TestResult_ExactlyOneVariant(t *testing.T) {
	ok := OK(map[string]any{"label": "POSITIVE", "score": 0.99})
	assert.True(t, ok.IsOK())
	assert.Empty(t, ok.Message())
	assert.Equal(t, map[string]any{"label": "POSITIVE", "score": 0.99}, ok.Payload())

	failed := Failed("boom")
	assert.False(t, failed.IsOK())
	assert.Nil(t, failed.Value())
	assert.Equal(t, map[string]string{"error": "boom"}, failed.Payload())

	assert.Equal(t, "unknown error", Failed("").Message())

	var zero Result
	assert.False(t, zero.IsOK())
	assert.Equal(t, map[string]string{"error": "no result"}, zero.Payload())
}

func TestGuard(t *testing.T) {
	ctx := context.Background()

	res := Guard(ctx, "image", "stub", func(ctx context.Context) (any, error) {
		return "tabby cat", nil
	})
	require.True(t, res.IsOK())
	assert.Equal(t, "tabby cat", res.Value())

	res = Guard(ctx, "image", "stub", func(ctx context.Context) (any, error) {
		return nil, errors.New("cannot identify image file")
	})
	require.False(t, res.IsOK())
	assert.Equal(t, "cannot identify image file", res.Message())

	res = Guard(ctx, "video", "stub", func(ctx context.Context) (any, error) {
		var frames []int
		return frames[3], nil
	})
	require.False(t, res.IsOK())
	assert.Contains(t, res.Message(), "index out of range")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(
		Descriptor{Name: "tone", Description: "Text sentiment analysis"},
		Descriptor{Name: "image", Description: "Object recognition in images"},
		Descriptor{Name: "audio", Description: "Speech to text transcription"},
		Descriptor{Name: "video", Description: "Action classification in video"},
	)

	list := r.ListModalities()
	assert.Len(t, list, 4)
	assert.Equal(t, "Text sentiment analysis", list["tone"])
	assert.Equal(t, list, r.ListModalities())

	descs := r.Descriptors()
	require.Len(t, descs, 4)
	assert.Equal(t, "audio", descs[0].Name)
	assert.Equal(t, "video", descs[3].Name)

	d, err := r.Lookup("audio")
	require.NoError(t, err)
	assert.Equal(t, "Speech to text transcription", d.Description)

	_, err = r.Lookup("depth")
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
	assert.Contains(t, err.Error(), "not registered")
}
