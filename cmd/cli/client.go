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
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("MEDIA_INFERENCE_URL"); u != "" {
		return u
	}
	return "http://localhost:9000"
}

func newClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Minute)
}

// contentTypes 按扩展名推断上传类型
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".txt":  "text/plain",
}

func guessContentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// apiError 非 200 响应，detail 取自 {"detail": ...}
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
}

func checkResponse(resp *resty.Response) (json.RawMessage, error) {
	if resp.StatusCode() == http.StatusOK {
		return json.RawMessage(resp.Body()), nil
	}
	var body struct {
		Detail string `json:"detail"`
	}
	detail := resp.String()
	if json.Unmarshal(resp.Body(), &body) == nil && body.Detail != "" {
		detail = body.Detail
	}
	return nil, &apiError{Status: resp.StatusCode(), Detail: detail}
}

func listModels(c *resty.Client) (map[string]string, error) {
	resp, err := c.R().Get("/")
	if err != nil {
		return nil, err
	}
	raw, err := checkResponse(resp)
	if err != nil {
		return nil, err
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode GET /: %w", err)
	}
	return out, nil
}

func classifyTone(c *resty.Client, text string) (json.RawMessage, error) {
	resp, err := c.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": text}).
		Post("/tone/")
	if err != nil {
		return nil, err
	}
	return checkResponse(resp)
}

func upload(c *resty.Client, modality, path, contentType string) (json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	resp, err := c.R().
		SetMultipartField("body", filepath.Base(path), contentType, f).
		Post("/" + modality + "/")
	if err != nil {
		return nil, err
	}
	return checkResponse(resp)
}

func health(c *resty.Client) (json.RawMessage, error) {
	resp, err := c.R().Get("/health")
	if err != nil {
		return nil, err
	}
	return checkResponse(resp)
}
