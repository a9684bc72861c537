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

package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"media-inference/pkg/tracing"
)

const providerBridge = "bridge"

// bridgeStderrTail 出错时附带的子进程 stderr 尾部长度
const bridgeStderrTail = 2048

// BridgeClient 驱动一个常驻本地子进程（例如 python -m serve_model），模型只加载一次。
// 协议为逐行 JSON：每行一个请求写入 stdin，子进程按序在 stdout 回写一行响应。
// 请求串行执行；子进程退出或请求超时后，下一次请求重新拉起
type BridgeClient struct {
	command []string
	model   string
	run     bridgeRunFn

	mu   sync.Mutex
	proc *bridgeProcess
}

type bridgeRequest struct {
	Task       string    `json:"task"` // classify_text | logits | classify_tensor | transcribe
	Model      string    `json:"model"`
	Text       string    `json:"text,omitempty"`
	Shape      []int64   `json:"shape,omitempty"`
	Data       []float32 `json:"data,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty"`
}

type bridgeResponse struct {
	Label  string    `json:"label,omitempty"`
	Score  float64   `json:"score,omitempty"`
	Logits []float32 `json:"logits,omitempty"`
	Text   string    `json:"text,omitempty"`
	Error  string    `json:"error,omitempty"`
}

type bridgeRunFn func(ctx context.Context, payload []byte) ([]byte, error)

type bridgeProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *os.File
	reader *bufio.Reader
	stderr *tailBuffer
	done   chan struct{}
}

func parseBridgeCommand(raw string) ([]string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return nil, fmt.Errorf("bridge command is empty")
	}
	return strings.Fields(clean), nil
}

// NewBridgeClient 创建 bridge 客户端；子进程在 Ready 或首次请求时启动
func NewBridgeClient(opts Options) (*BridgeClient, error) {
	command, err := parseBridgeCommand(opts.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	c := &BridgeClient{command: command, model: opts.Model}
	c.run = c.exchange
	return c, nil
}

// Provider implements Handle
func (c *BridgeClient) Provider() string { return providerBridge }

// Ready implements Checker：启动子进程，使模型在接收流量前完成加载
func (c *BridgeClient) Ready(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.ensureLocked()
	return err
}

// Close implements Handle：关闭 stdin 通知子进程退出，超时后强制结束
func (c *BridgeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.proc
	if p == nil {
		return nil
	}
	c.proc = nil
	_ = p.stdin.Close()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		_ = p.cmd.Process.Kill()
	}
	return p.out.Close()
}

// Classify implements TextClassifier
func (c *BridgeClient) Classify(ctx context.Context, text string) (Prediction, error) {
	resp, err := c.do(ctx, bridgeRequest{Task: "classify_text", Text: text})
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Label: resp.Label, Score: resp.Score}, nil
}

// Logits implements TensorClassifier
func (c *BridgeClient) Logits(ctx context.Context, input Tensor) ([]float32, error) {
	resp, err := c.do(ctx, bridgeRequest{Task: "logits", Shape: input.Shape, Data: input.Data})
	if err != nil {
		return nil, err
	}
	if len(resp.Logits) == 0 {
		return nil, fmt.Errorf("%w: bridge returned no logits", ErrBackendProtocol)
	}
	return resp.Logits, nil
}

// ClassifyTensor implements LabeledClassifier
func (c *BridgeClient) ClassifyTensor(ctx context.Context, input Tensor) (Prediction, error) {
	resp, err := c.do(ctx, bridgeRequest{Task: "classify_tensor", Shape: input.Shape, Data: input.Data})
	if err != nil {
		return Prediction{}, err
	}
	if resp.Label == "" {
		return Prediction{}, fmt.Errorf("%w: bridge returned no label", ErrBackendProtocol)
	}
	return Prediction{Label: resp.Label, Score: resp.Score}, nil
}

// Transcribe implements SpeechRecognizer
func (c *BridgeClient) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	resp, err := c.do(ctx, bridgeRequest{
		Task: "transcribe", Shape: []int64{int64(len(samples))}, Data: samples, SampleRate: sampleRate,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *BridgeClient) do(ctx context.Context, req bridgeRequest) (resp bridgeResponse, err error) {
	ctx, span := tracing.StartBackendSpan(ctx, providerBridge, c.model)
	defer func() { tracing.EndSpan(span, err) }()

	req.Model = c.model
	payload, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("%w: failed to encode bridge request: %w", ErrBackendProtocol, err)
	}
	out, err := c.run(ctx, payload)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return resp, fmt.Errorf("%w: failed to decode bridge response: %w", ErrBackendProtocol, err)
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return resp, fmt.Errorf("%w: bridge runtime error: %s", ErrBackendInference, msg)
	}
	return resp, nil
}

// exchange 写入一行请求并读取一行响应；超时或读写失败时结束子进程
func (c *BridgeClient) exchange(ctx context.Context, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.ensureLocked()
	if err != nil {
		return nil, err
	}

	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		if _, err := p.stdin.Write(append(payload, '\n')); err != nil {
			ch <- result{err: err}
			return
		}
		line, err := p.reader.ReadBytes('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		c.stopLocked()
		<-ch
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			// 子进程已退出时等待 stderr 收集完毕
			select {
			case <-p.done:
			case <-time.After(500 * time.Millisecond):
			}
			c.stopLocked()
			if tail := p.stderr.String(); tail != "" {
				return nil, fmt.Errorf("%w: bridge process failed: %w: %s", ErrBackendUnavailable, r.err, tail)
			}
			return nil, fmt.Errorf("%w: bridge process failed: %w", ErrBackendUnavailable, r.err)
		}
		return r.line, nil
	}
}

func (c *BridgeClient) ensureLocked() (*bridgeProcess, error) {
	if c.proc != nil {
		select {
		case <-c.proc.done:
			c.stopLocked()
		default:
			return c.proc, nil
		}
	}

	cmd := exec.Command(c.command[0], c.command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: bridge stdin: %w", ErrBackendUnavailable, err)
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: bridge stdout: %w", ErrBackendUnavailable, err)
	}
	stderr := &tailBuffer{max: bridgeStderrTail}
	cmd.Stdout = pw
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("%w: start bridge command: %w", ErrBackendUnavailable, err)
	}
	_ = pw.Close()

	p := &bridgeProcess{
		cmd:    cmd,
		stdin:  stdin,
		out:    pr,
		reader: bufio.NewReader(pr),
		stderr: stderr,
		done:   make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	c.proc = p
	return p, nil
}

// stopLocked 结束当前子进程；关闭管道以解除阻塞中的读写
func (c *BridgeClient) stopLocked() {
	p := c.proc
	if p == nil {
		return
	}
	c.proc = nil
	_ = p.cmd.Process.Kill()
	_ = p.stdin.Close()
	_ = p.out.Close()
}

// tailBuffer 只保留最后 max 字节的并发安全 writer
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
