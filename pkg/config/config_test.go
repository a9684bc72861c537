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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9100
  host: "127.0.0.1"
  max_body_bytes: 1048576
log:
  level: "debug"
models:
  tone:
    min_length: 12
    backend:
      provider: huggingface
      base_url: "http://hf.local"
      api_key: "${TEST_HF_KEY}"
  image:
    description: "Распознавание объектов на изображении"
    labels_file: "configs/imagenet_classes.txt"
    backend:
      provider: kserve
      input: "input__0"
  video:
    enable: false
    num_frames: 16
`)
	t.Setenv("TEST_HF_KEY", "hf_secret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.API.Port)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, 1048576, cfg.API.MaxBodyBytes)
	assert.Equal(t, "debug", cfg.Log.Level)

	assert.Equal(t, 12, cfg.Models.Tone.MinLength)
	assert.Equal(t, "huggingface", cfg.Models.Tone.Backend.Provider)
	assert.Equal(t, "hf_secret", cfg.Models.Tone.Backend.APIKey)
	assert.Equal(t, "60s", cfg.Models.Tone.Backend.Timeout)

	assert.Equal(t, "Распознавание объектов на изображении", cfg.Models.Image.Description)
	assert.Equal(t, "image/jpeg", cfg.Models.Image.ExpectedContentType)
	assert.Equal(t, "input__0", cfg.Models.Image.Backend.Input)
	assert.Equal(t, 224, cfg.Models.Image.CropSize)

	assert.False(t, cfg.Models.Video.Enabled())
	assert.Equal(t, 16, cfg.Models.Video.NumFrames)
	assert.True(t, cfg.Models.Audio.Enabled())
	assert.Equal(t, "stub", cfg.Models.Audio.Backend.Provider)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 64<<20, cfg.API.MaxBodyBytes)
	assert.Equal(t, 8, cfg.Models.Tone.MinLength)
	assert.Equal(t, "", cfg.Models.Tone.ExpectedContentType)
	assert.Equal(t, "image/jpeg", cfg.Models.Image.ExpectedContentType)
	assert.Equal(t, "audio/wav", cfg.Models.Audio.ExpectedContentType)
	assert.Equal(t, "video/mp4", cfg.Models.Video.ExpectedContentType)
	assert.Equal(t, 16000, cfg.Models.Audio.SampleRate)
	assert.Equal(t, 8, cfg.Models.Video.NumFrames)
	assert.Equal(t, "env", cfg.Secrets.Provider)
	assert.Equal(t, "otlp-grpc", cfg.Monitoring.Tracing.Exporter)
	for _, m := range []ModalityConfig{
		cfg.Models.Tone.ModalityConfig, cfg.Models.Image.ModalityConfig,
		cfg.Models.Audio.ModalityConfig, cfg.Models.Video.ModalityConfig,
	} {
		assert.True(t, m.Enabled())
		assert.Equal(t, "stub", m.Backend.Provider)
		assert.NotEmpty(t, m.Description)
	}
}

func TestLoadAPIConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "api:\n  port: 9555\n")
	t.Setenv(ConfigPathEnv, path)

	cfg, err := LoadAPIConfig()
	require.NoError(t, err)
	assert.Equal(t, 9555, cfg.API.Port)

	t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = LoadAPIConfig()
	assert.Error(t, err)
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "api.yaml.example"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, "kserve", cfg.Models.Image.Backend.Provider)
	assert.Equal(t, 10000, cfg.Storage.Cache.MaxEntries)
	if cfg.Models.Image.LabelsFile != "" {
		_, err := os.Stat(filepath.Join("..", "..", cfg.Models.Image.LabelsFile))
		assert.NoError(t, err, "labels_file in example config must exist")
	}
}
