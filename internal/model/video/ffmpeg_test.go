package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool 写一个可执行 shell 脚本替代 ffmpeg/ffprobe
func fakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

const rotatedProbe = `cat <<'JSON'
{"streams":[{"width":2,"height":1,"nb_frames":"3","avg_frame_rate":"1/1","start_time":"0.000000",
 "side_data_list":[{"side_data_type":"Display Matrix","rotation":-90}]}]}
JSON
`

func TestFFmpegSource_ProbeRotated(t *testing.T) {
	dir := t.TempDir()
	src := FFmpegSource{FFprobe: fakeTool(t, dir, "ffprobe", rotatedProbe)}

	info, err := src.Probe(context.Background(), filepath.Join(dir, "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, StreamInfo{Frames: 3, Width: 1, Height: 2, Rotation: -90, FrameRate: 1}, info)
}

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(`{"streams":[{"width":1920,"height":1080,"nb_frames":"N/A","nb_read_packets":"240",
		"avg_frame_rate":"30000/1001","start_time":"0.033","tags":{"rotate":"270"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, 240, info.Frames)
	assert.Equal(t, 1080, info.Width)
	assert.Equal(t, 1920, info.Height)
	assert.InDelta(t, 29.97, info.FrameRate, 1e-2)
	assert.InDelta(t, 0.033, info.StartTime, 1e-9)

	info, err = parseProbe([]byte(`{"streams":[{"width":640,"height":360,"nb_frames":"10","side_data_list":[{"rotation":180}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, 640, info.Width)
	assert.Equal(t, 360, info.Height)

	_, err = parseProbe([]byte(`{"streams":[]}`))
	assert.Error(t, err)
}

func TestFFmpegSource_ReadFramesByPTS(t *testing.T) {
	dir := t.TempDir()
	script := fmt.Sprintf(`echo "$@" > %q
printf '\001\002\003\004\005\006\007\010\011\012\013\014'
echo "[Parsed_showinfo_2 @ 0x55d0] config in time_base: 1/1, frame_rate: 1/1" >&2
echo "[Parsed_showinfo_2 @ 0x55d0] n:   0 pts:      0 pts_time:0       duration:1" >&2
echo "[Parsed_showinfo_2 @ 0x55d0] n:   1 pts:      2 pts_time:2       duration:1" >&2
`, filepath.Join(dir, "args"))
	src := FFmpegSource{FFmpeg: fakeTool(t, dir, "ffmpeg", script)}
	info := StreamInfo{Frames: 3, Width: 1, Height: 2, FrameRate: 1}

	frames, err := src.ReadFrames(context.Background(), filepath.Join(dir, "clip.mp4"), info, []int{0, 1, 2})
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Contains(t, frames, 0)
	require.Contains(t, frames, 2)
	assert.Equal(t, 1, frames[0].Bounds().Dx())
	assert.Equal(t, 2, frames[0].Bounds().Dy())
	assert.Equal(t, []byte{1, 2, 3, 0xff, 4, 5, 6, 0xff}, frames[0].Pix)
	assert.Equal(t, []byte{7, 8, 9, 0xff, 10, 11, 12, 0xff}, frames[2].Pix)

	args, err := os.ReadFile(filepath.Join(dir, "args"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "scale=1:2,showinfo")
}

func TestFFmpegSource_ReadFramesInOrderWithoutPTS(t *testing.T) {
	dir := t.TempDir()
	src := FFmpegSource{FFmpeg: fakeTool(t, dir, "ffmpeg", "printf '\\001\\002\\003\\004\\005\\006'\n")}
	info := StreamInfo{Frames: 3, Width: 2, Height: 1, FrameRate: 25}

	frames, err := src.ReadFrames(context.Background(), filepath.Join(dir, "clip.mp4"), info, []int{0, 2})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{1, 2, 3, 0xff, 4, 5, 6, 0xff}, frames[0].Pix)
}

func TestFFmpegSource_ReadFramesFailure(t *testing.T) {
	dir := t.TempDir()
	src := FFmpegSource{FFmpeg: fakeTool(t, dir, "ffmpeg", `echo "noise" >&2
echo "clip.mp4: Invalid data found when processing input" >&2
exit 1
`)}

	_, err := src.ReadFrames(context.Background(), filepath.Join(dir, "clip.mp4"), StreamInfo{Width: 2, Height: 2}, []int{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found when processing input")
	assert.NotContains(t, err.Error(), "noise")
}

func TestAssignFrames(t *testing.T) {
	indices := []int{0, 10, 20}
	info := StreamInfo{FrameRate: 10}

	// 第 10 帧解码失败时，select 的第二个输出实际是第 11 帧
	got := assignFrames(indices, []float64{0, 1.1, 2.1}, info, 3)
	assert.Equal(t, map[int]int{0: 0, 10: 1, 20: 2}, got)

	// 多个输出落到同一序号时保留最近的一帧
	got = assignFrames(indices, []float64{0, 0.2, 0.1}, info, 3)
	assert.Equal(t, map[int]int{0: 0}, got)

	// 非零起始时间
	got = assignFrames(indices, []float64{5, 7}, StreamInfo{FrameRate: 10, StartTime: 5}, 2)
	assert.Equal(t, map[int]int{0: 0, 20: 1}, got)

	// pts 数量不符时按输出顺序
	got = assignFrames(indices, nil, info, 2)
	assert.Equal(t, map[int]int{0: 0, 10: 1}, got)

	assert.Empty(t, assignFrames(nil, nil, info, 0))
}
