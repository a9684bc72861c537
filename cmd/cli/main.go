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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"media-inference/pkg/config"
	"media-inference/pkg/redaction"
)

const version = "media-inference cli 0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return 0
	}
	cmd, rest := args[0], args[1:]
	c := newClient(apiBaseURL())

	var (
		out any
		err error
	)
	switch cmd {
	case "version":
		fmt.Fprintln(stdout, version)
		return 0
	case "config":
		return runConfig(stdout, stderr)
	case "models":
		var models map[string]string
		if models, err = listModels(c); err == nil {
			printModels(stdout, models)
			return 0
		}
	case "health":
		out, err = health(c)
	case "tone":
		if len(rest) == 0 {
			fmt.Fprintln(stderr, "Usage: media-cli tone <text>")
			return 2
		}
		out, err = classifyTone(c, strings.Join(rest, " "))
	case "image", "audio", "video":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		fs.SetOutput(stderr)
		contentType := fs.String("type", "", "覆盖上传的 Content-Type（默认按扩展名推断）")
		if err := fs.Parse(rest); err != nil || fs.NArg() != 1 {
			fmt.Fprintf(stderr, "Usage: media-cli %s [-type content/type] <file>\n", cmd)
			return 2
		}
		path := fs.Arg(0)
		ct := *contentType
		if ct == "" {
			ct = guessContentType(path)
		}
		out, err = upload(c, cmd, path, ct)
	default:
		fmt.Fprintf(stderr, "未知命令: %s\n", cmd)
		printUsage(stderr)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	printJSON(stdout, out)
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `media-cli: media-inference 命令行客户端

用法:
  media-cli models                      列出已启用模态
  media-cli tone <text>                 文本情感分析
  media-cli image [-type t] <file.jpg>  图像分类
  media-cli audio [-type t] <file.wav>  语音转写
  media-cli video [-type t] <file.mp4>  视频动作分类
  media-cli health                      服务健康检查
  media-cli config                      打印生效配置（凭据已脱敏）
  media-cli version                     版本

环境变量:
  MEDIA_INFERENCE_URL     服务地址（默认 http://localhost:9000）
  MEDIA_INFERENCE_CONFIG  配置文件路径（config 命令使用）`)
}

func printModels(w io.Writer, models map[string]string) {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%-6s %s\n", name, models[name])
	}
}

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%v\n", v)
		return
	}
	fmt.Fprintln(w, string(data))
}

func runConfig(stdout, stderr io.Writer) int {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}
	redacted, err := redaction.Value(cfg, redaction.ConfigSecrets)
	if err != nil {
		fmt.Fprintf(stderr, "序列化配置失败: %v\n", err)
		return 1
	}
	printJSON(stdout, redacted)
	return 0
}
