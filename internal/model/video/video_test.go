package video

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-inference/internal/model/backend"
)

type fakeSource struct {
	info      StreamInfo
	probeErr  error
	broken    map[int]bool
	requested []int
	path      string
}

func (f *fakeSource) Probe(ctx context.Context, path string) (StreamInfo, error) {
	f.path = path
	if _, err := os.Stat(path); err != nil {
		return StreamInfo{}, err
	}
	return f.info, f.probeErr
}

func (f *fakeSource) ReadFrames(ctx context.Context, path string, info StreamInfo, indices []int) (map[int]*image.RGBA, error) {
	f.requested = indices
	out := make(map[int]*image.RGBA)
	for _, idx := range indices {
		if f.broken[idx] {
			continue
		}
		img := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
		for i := range img.Pix {
			img.Pix[i] = 0xff
		}
		img.Set(0, 0, color.RGBA{A: 0xff})
		out[idx] = img
	}
	return out, nil
}

type fakeLabeled struct {
	input backend.Tensor
}

func (f *fakeLabeled) Provider() string { return "fake" }
func (f *fakeLabeled) Close() error     { return nil }
func (f *fakeLabeled) ClassifyTensor(ctx context.Context, input backend.Tensor) (backend.Prediction, error) {
	f.input = input
	return backend.Prediction{Label: "archery", Score: 0.8}, nil
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []int{0, 42, 85, 128, 170, 213, 256, 299}, Linspace(299, 8))
	assert.Equal(t, []int{0, 0, 0, 1, 1, 2, 2, 3}, Linspace(3, 8))
	assert.Equal(t, []int{0}, Linspace(10, 1))
	assert.Nil(t, Linspace(10, 0))
	assert.Equal(t, []int{0, 1, 2, 3}, Unique(Linspace(3, 8)))
}

func TestAdapter_Infer(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{info: StreamInfo{Frames: 300, Width: 32, Height: 24}}
	cls := &fakeLabeled{}
	a := NewAdapter(cls, src, Options{NumFrames: 8, FrameSize: 16, TempDir: dir})

	res := a.Infer(context.Background(), []byte("fake mp4 bytes"))
	require.True(t, res.IsOK(), res.Message())
	assert.Equal(t, "archery", res.Value())

	assert.Equal(t, []int{0, 42, 85, 128, 170, 213, 256, 299}, src.requested)
	assert.Equal(t, []int64{1, 8, 3, 16, 16}, cls.input.Shape)
	assert.Len(t, cls.input.Data, 8*3*16*16)
	assert.InDelta(t, 1.0, cls.input.Data[16*16-1], 1e-6)

	_, err := os.Stat(src.path)
	assert.True(t, os.IsNotExist(err), "temp file should be removed")
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestAdapter_SkipsBrokenFrames(t *testing.T) {
	src := &fakeSource{
		info:   StreamInfo{Frames: 8, Width: 8, Height: 8},
		broken: map[int]bool{2: true, 5: true},
	}
	cls := &fakeLabeled{}
	res := NewAdapter(cls, src, Options{NumFrames: 8, FrameSize: 4, TempDir: t.TempDir()}).
		Infer(context.Background(), []byte("x"))
	require.True(t, res.IsOK(), res.Message())
	assert.Equal(t, []int64{1, 6, 3, 4, 4}, cls.input.Shape)
}

func TestAdapter_Failures(t *testing.T) {
	dir := t.TempDir()

	res := NewAdapter(&fakeLabeled{}, &fakeSource{info: StreamInfo{Frames: 0, Width: 8, Height: 8}}, Options{NumFrames: 8, FrameSize: 4, TempDir: dir}).
		Infer(context.Background(), []byte("x"))
	require.False(t, res.IsOK())
	assert.Contains(t, res.Message(), "no frames")

	all := map[int]bool{0: true, 1: true}
	res = NewAdapter(&fakeLabeled{}, &fakeSource{info: StreamInfo{Frames: 2, Width: 8, Height: 8}, broken: all}, Options{NumFrames: 8, FrameSize: 4, TempDir: dir}).
		Infer(context.Background(), []byte("x"))
	require.False(t, res.IsOK())
	assert.Contains(t, res.Message(), "no frames could be decoded")

	res = NewAdapter(&fakeLabeled{}, &fakeSource{probeErr: errors.New("moov atom not found")}, Options{NumFrames: 8, FrameSize: 4, TempDir: dir}).
		Infer(context.Background(), []byte("x"))
	require.False(t, res.IsOK())
	assert.Equal(t, "moov atom not found", res.Message())

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestFFmpegSource_MissingBinary(t *testing.T) {
	src := FFmpegSource{FFmpeg: "/nonexistent/ffmpeg", FFprobe: "/nonexistent/ffprobe"}
	_, err := src.Probe(context.Background(), filepath.Join(t.TempDir(), "a.mp4"))
	assert.Error(t, err)
}

func TestRGB24ToRGBA(t *testing.T) {
	img := rgb24ToRGBA([]byte{1, 2, 3, 4, 5, 6}, 2, 1)
	assert.Equal(t, []byte{1, 2, 3, 0xff, 4, 5, 6, 0xff}, img.Pix)
}
