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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"media-inference/pkg/utils"
)

// 默认配置文件路径，可由 MEDIA_INFERENCE_CONFIG 覆盖
const (
	DefaultAPIConfigPath = "configs/api.yaml"
	ConfigPathEnv        = "MEDIA_INFERENCE_CONFIG"
)

// 模态名称
const (
	ModalityTone  = "tone"
	ModalityImage = "image"
	ModalityAudio = "audio"
	ModalityVideo = "video"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Models     ModelsConfig     `mapstructure:"models"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port         int              `mapstructure:"port"`
	Host         string           `mapstructure:"host"`
	MaxBodyBytes int              `mapstructure:"max_body_bytes"` // 上传整体读入内存，此处限制单请求体积
	ShutdownWait string           `mapstructure:"shutdown_wait"`  // 如 "30s"
	CORS         CORSConfig       `mapstructure:"cors"`
	Middleware   MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	RateLimit      bool    `mapstructure:"rate_limit"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// ModelsConfig 四个模态的模型配置
type ModelsConfig struct {
	Tone  ToneConfig  `mapstructure:"tone"`
	Image ImageConfig `mapstructure:"image"`
	Audio AudioConfig `mapstructure:"audio"`
	Video VideoConfig `mapstructure:"video"`
}

// ModalityConfig 各模态通用字段
type ModalityConfig struct {
	Enable              *bool         `mapstructure:"enable"` // 未配置时默认启用
	Description         string        `mapstructure:"description"`
	ExpectedContentType string        `mapstructure:"expected_content_type"`
	Backend             BackendConfig `mapstructure:"backend"`
}

// Enabled 返回该模态是否启用
func (m ModalityConfig) Enabled() bool {
	return m.Enable == nil || *m.Enable
}

// BackendConfig 推理后端配置（ModelHandle 的构造参数）
type BackendConfig struct {
	Provider string `mapstructure:"provider"` // kserve | huggingface | bridge | stub
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"` // 支持 ${ENV} 与 vault:<key>
	Timeout  string `mapstructure:"timeout"`
	Retries  int    `mapstructure:"retries"`
	Command  string `mapstructure:"command"` // provider=bridge 时的子进程命令
	Input    string `mapstructure:"input"`   // kserve 输入张量名
	Output   string `mapstructure:"output"`  // kserve 输出张量名
}

// ToneConfig 文本情感模型配置
type ToneConfig struct {
	ModalityConfig `mapstructure:",squash"`
	MinLength      int `mapstructure:"min_length"`
}

// ImageConfig 图像分类模型配置
type ImageConfig struct {
	ModalityConfig `mapstructure:",squash"`
	LabelsFile     string `mapstructure:"labels_file"`
	ResizeTo       int    `mapstructure:"resize_to"`
	CropSize       int    `mapstructure:"crop_size"`
}

// AudioConfig 语音转写模型配置
type AudioConfig struct {
	ModalityConfig `mapstructure:",squash"`
	SampleRate     int `mapstructure:"sample_rate"`
}

// VideoConfig 视频动作分类模型配置
type VideoConfig struct {
	ModalityConfig `mapstructure:",squash"`
	NumFrames      int    `mapstructure:"num_frames"`
	FrameSize      int    `mapstructure:"frame_size"`
	FFmpegPath     string `mapstructure:"ffmpeg_path"`
	FFprobePath    string `mapstructure:"ffprobe_path"`
	TempDir        string `mapstructure:"temp_dir"`
}

// StorageConfig 存储配置（仅推理结果缓存）
type StorageConfig struct {
	Cache CacheConfig `mapstructure:"cache"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Type       string `mapstructure:"type"` // memory | redis
	Addr       string `mapstructure:"addr"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TTL        string `mapstructure:"ttl"`
	MaxEntries int    `mapstructure:"max_entries"` // 仅 memory，0 使用默认容量
}

// SecretsConfig 后端凭据来源
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | memory | vault
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig Vault 连接配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	Exporter       string `mapstructure:"exporter"` // otlp-grpc | otlp-http
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	// api.yaml.example 等非标准扩展名按 YAML 解析
	if !slices.Contains(viper.SupportedExts, strings.TrimPrefix(filepath.Ext(configPath), ".")) {
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	config.ApplyDefaults()
	return &config, nil
}

// LoadAPIConfig 加载 API 配置；配置文件不存在时退回默认配置（全部 stub 后端）
func LoadAPIConfig() (*Config, error) {
	path := utils.CoalesceString(os.Getenv(ConfigPathEnv), DefaultAPIConfigPath)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && os.Getenv(ConfigPathEnv) == "" {
			return Default(), nil
		}
		return nil, fmt.Errorf("配置文件 %q 不可用: %w", path, err)
	}
	return LoadConfig(path)
}

// Default 返回仅含默认值的配置
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 填充所有零值字段
func (c *Config) ApplyDefaults() {
	c.API.Port = utils.DefaultInt(c.API.Port, 9000)
	c.API.Host = utils.CoalesceString(c.API.Host, "0.0.0.0")
	c.API.MaxBodyBytes = utils.DefaultInt(c.API.MaxBodyBytes, 64<<20)
	c.API.ShutdownWait = utils.CoalesceString(c.API.ShutdownWait, "30s")
	if c.API.Middleware.RateLimitRPS <= 0 {
		c.API.Middleware.RateLimitRPS = 50
	}
	c.API.Middleware.RateLimitBurst = utils.DefaultInt(c.API.Middleware.RateLimitBurst, 100)

	m := &c.Models
	applyModalityDefaults(&m.Tone.ModalityConfig, "Text sentiment analysis", "", "stub")
	m.Tone.MinLength = utils.DefaultInt(m.Tone.MinLength, 8)
	m.Tone.Backend.Model = utils.CoalesceString(m.Tone.Backend.Model, "distilbert-base-uncased-finetuned-sst-2-english")

	applyModalityDefaults(&m.Image.ModalityConfig, "Object recognition in images", "image/jpeg", "stub")
	m.Image.Backend.Model = utils.CoalesceString(m.Image.Backend.Model, "resnet18")
	m.Image.ResizeTo = utils.DefaultInt(m.Image.ResizeTo, 256)
	m.Image.CropSize = utils.DefaultInt(m.Image.CropSize, 224)

	applyModalityDefaults(&m.Audio.ModalityConfig, "Speech to text transcription", "audio/wav", "stub")
	m.Audio.Backend.Model = utils.CoalesceString(m.Audio.Backend.Model, "wav2vec2-base-960h")
	m.Audio.SampleRate = utils.DefaultInt(m.Audio.SampleRate, 16000)

	applyModalityDefaults(&m.Video.ModalityConfig, "Action classification in video", "video/mp4", "stub")
	m.Video.Backend.Model = utils.CoalesceString(m.Video.Backend.Model, "timesformer-base-finetuned-k400")
	m.Video.NumFrames = utils.DefaultInt(m.Video.NumFrames, 8)
	m.Video.FrameSize = utils.DefaultInt(m.Video.FrameSize, 224)
	m.Video.FFmpegPath = utils.CoalesceString(m.Video.FFmpegPath, "ffmpeg")
	m.Video.FFprobePath = utils.CoalesceString(m.Video.FFprobePath, "ffprobe")

	c.Storage.Cache.Type = utils.CoalesceString(c.Storage.Cache.Type, "memory")
	c.Storage.Cache.TTL = utils.CoalesceString(c.Storage.Cache.TTL, "10m")
	c.Secrets.Provider = utils.CoalesceString(c.Secrets.Provider, "env")

	c.Log.Level = utils.CoalesceString(c.Log.Level, "info")
	c.Log.Format = utils.CoalesceString(c.Log.Format, "json")
	c.Monitoring.Tracing.Exporter = utils.CoalesceString(c.Monitoring.Tracing.Exporter, "otlp-grpc")
	c.Monitoring.Tracing.ServiceName = utils.CoalesceString(c.Monitoring.Tracing.ServiceName, "media-inference")
}

func applyModalityDefaults(m *ModalityConfig, description, contentType, provider string) {
	m.Description = utils.CoalesceString(m.Description, description)
	m.ExpectedContentType = utils.CoalesceString(m.ExpectedContentType, contentType)
	m.Backend.Provider = utils.CoalesceString(m.Backend.Provider, provider)
	m.Backend.Timeout = utils.CoalesceString(m.Backend.Timeout, "60s")
}

// replaceEnvVars 替换后端 api_key 中的 ${ENV} 占位符
func replaceEnvVars(config *Config) {
	for _, b := range []*BackendConfig{
		&config.Models.Tone.Backend,
		&config.Models.Image.Backend,
		&config.Models.Audio.Backend,
		&config.Models.Video.Backend,
	} {
		b.APIKey = expandEnv(b.APIKey)
	}
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
	config.Storage.Cache.Password = expandEnv(config.Storage.Cache.Password)
}

func expandEnv(v string) string {
	if !strings.HasPrefix(v, "${") || !strings.HasSuffix(v, "}") {
		return v
	}
	envVar := strings.TrimSuffix(strings.TrimPrefix(v, "${"), "}")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return ""
}
