// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// StreamInfo 视频流元数据；Width/Height 为按显示矩阵旋转后的尺寸
type StreamInfo struct {
	Frames    int
	Width     int
	Height    int
	Rotation  int
	FrameRate float64
	StartTime float64
}

// FrameSource 按帧序号读取解码后的 RGB 帧
type FrameSource interface {
	Probe(ctx context.Context, path string) (StreamInfo, error)
	// ReadFrames 返回 indices（升序、去重）中成功解码的帧，键为帧序号
	ReadFrames(ctx context.Context, path string, info StreamInfo, indices []int) (map[int]*image.RGBA, error)
}

// FFmpegSource 基于 ffprobe/ffmpeg 可执行文件
type FFmpegSource struct {
	FFmpeg  string
	FFprobe string
}

type probeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		StartTime     string `json:"start_time"`
		Tags          struct {
			Rotate string `json:"rotate"`
		} `json:"tags"`
		SideDataList []struct {
			Rotation *float64 `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
}

// Probe 读取首个视频流的尺寸、帧数、帧率与旋转角
func (s FFmpegSource) Probe(ctx context.Context, path string) (StreamInfo, error) {
	out, _, err := run(ctx, s.FFprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=width,height,nb_frames,nb_read_packets,avg_frame_rate,start_time:stream_tags=rotate:stream_side_data=rotation",
		"-of", "json",
		path,
	)
	if err != nil {
		return StreamInfo{}, err
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (StreamInfo, error) {
	var decoded probeOutput
	if err := json.Unmarshal(out, &decoded); err != nil {
		return StreamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(decoded.Streams) == 0 {
		return StreamInfo{}, fmt.Errorf("no video stream found")
	}
	st := decoded.Streams[0]
	frames, _ := strconv.Atoi(st.NbFrames)
	if frames <= 0 {
		frames, _ = strconv.Atoi(st.NbReadPackets)
	}
	info := StreamInfo{
		Frames:    frames,
		Width:     st.Width,
		Height:    st.Height,
		FrameRate: parseRate(st.AvgFrameRate),
	}
	info.StartTime, _ = strconv.ParseFloat(st.StartTime, 64)

	rotation, _ := strconv.Atoi(st.Tags.Rotate)
	for _, sd := range st.SideDataList {
		if sd.Rotation != nil {
			rotation = int(math.Round(*sd.Rotation))
			break
		}
	}
	info.Rotation = rotation
	// ffmpeg 默认按显示矩阵自动旋转，输出帧宽高随之互换
	if r := ((rotation % 360) + 360) % 180; r == 90 {
		info.Width, info.Height = info.Height, info.Width
	}
	return info, nil
}

// parseRate 解析 "30000/1001" 形式的帧率，无效时为 0
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// ReadFrames 用 select 过滤器一次性取出所需帧，输出 rgb24 rawvideo；
// scale 固定输出尺寸，showinfo 给出每帧 pts 以确定帧序号
func (s FFmpegSource) ReadFrames(ctx context.Context, path string, info StreamInfo, indices []int) (map[int]*image.RGBA, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", info.Width, info.Height)
	}
	terms := make([]string, len(indices))
	for i, idx := range indices {
		terms[i] = fmt.Sprintf("eq(n\\,%d)", idx)
	}
	filter := fmt.Sprintf("select='%s',scale=%d:%d,showinfo", strings.Join(terms, "+"), info.Width, info.Height)
	out, logs, err := run(ctx, s.FFmpeg,
		"-hide_banner",
		"-nostats",
		"-v", "info",
		"-i", path,
		"-vf", filter,
		"-vsync", "0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
	if err != nil && len(out) == 0 {
		return nil, err
	}

	frameBytes := info.Width * info.Height * 3
	emitted := len(out) / frameBytes
	frames := make(map[int]*image.RGBA, emitted)
	for idx, pos := range assignFrames(indices, parseShowinfo(logs), info, emitted) {
		start := pos * frameBytes
		frames[idx] = rgb24ToRGBA(out[start:start+frameBytes], info.Width, info.Height)
	}
	return frames, nil
}

var showinfoPTS = regexp.MustCompile(`pts_time:\s*(-?[0-9.]+(?:[eE][-+]?[0-9]+)?)`)

// parseShowinfo 按输出顺序提取 showinfo 打印的 pts_time
func parseShowinfo(logs []byte) []float64 {
	var pts []float64
	for _, line := range strings.Split(string(logs), "\n") {
		if !strings.Contains(line, "showinfo") {
			continue
		}
		m := showinfoPTS.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		pts = append(pts, v)
	}
	return pts
}

// assignFrames 返回 请求帧序号 -> 输出位置。
// 有帧率且 pts 数量与输出帧数一致时，每个输出帧绑定到 pts 推算位置最近的请求序号，
// 同一序号保留距离最近者；否则按输出顺序对应。
func assignFrames(indices []int, pts []float64, info StreamInfo, emitted int) map[int]int {
	out := make(map[int]int, emitted)
	if len(indices) == 0 {
		return out
	}
	if info.FrameRate <= 0 || len(pts) != emitted {
		for i := 0; i < emitted && i < len(indices); i++ {
			out[indices[i]] = i
		}
		return out
	}

	dist := make(map[int]float64, emitted)
	for i, t := range pts {
		pos := (t - info.StartTime) * info.FrameRate
		idx := nearest(indices, pos)
		d := math.Abs(pos - float64(idx))
		if prev, ok := dist[idx]; ok && prev <= d {
			continue
		}
		dist[idx] = d
		out[idx] = i
	}
	return out
}

func nearest(sorted []int, pos float64) int {
	i := sort.Search(len(sorted), func(i int) bool { return float64(sorted[i]) >= pos })
	switch {
	case i == 0:
		return sorted[0]
	case i == len(sorted):
		return sorted[len(sorted)-1]
	}
	if pos-float64(sorted[i-1]) <= float64(sorted[i])-pos {
		return sorted[i-1]
	}
	return sorted[i]
}

func rgb24ToRGBA(raw []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for p, q := 0, 0; p < len(raw); p, q = p+3, q+4 {
		img.Pix[q] = raw[p]
		img.Pix[q+1] = raw[p+1]
		img.Pix[q+2] = raw[p+2]
		img.Pix[q+3] = 0xff
	}
	return img
}

// run 执行命令，返回 stdout 与 stderr；失败时错误信息取 stderr 最后一行
func run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%s failed: %w", name, err)
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
