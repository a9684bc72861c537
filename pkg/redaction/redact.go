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

package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Mode 脱敏模式
type Mode string

const (
	ModeRedact Mode = "redact" // 替换为 "***REDACTED***"
	ModeHash   Mode = "hash"   // 替换为 SHA256 前缀，便于比对是否相同
	ModeRemove Mode = "remove" // 完全移除字段
)

// FieldMask 字段掩码；Path 以 "." 分隔，"*" 匹配任意一个键
type FieldMask struct {
	Path string
	Mode Mode
}

// ConfigSecrets 配置中的凭据字段（JSON 键为 Go 字段名）
var ConfigSecrets = []FieldMask{
	{Path: "Models.*.Backend.APIKey", Mode: ModeRedact},
	{Path: "Secrets.Vault.Token", Mode: ModeRedact},
	{Path: "Storage.Cache.Password", Mode: ModeRedact},
}

// Redact 对 JSON 对象应用掩码；空字符串值保持不变
func Redact(data []byte, masks []FieldMask) ([]byte, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("redact: %w", err)
	}
	for _, m := range masks {
		apply(obj, strings.Split(m.Path, "."), m.Mode)
	}
	return json.Marshal(obj)
}

// Value 对结构体或 map 脱敏，返回可直接序列化的结果
func Value(v interface{}, masks []FieldMask) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("redact: %w", err)
	}
	return Redact(data, masks)
}

func apply(obj map[string]interface{}, parts []string, mode Mode) {
	key := parts[0]
	if len(parts) > 1 {
		for k, child := range obj {
			if key != "*" && k != key {
				continue
			}
			if next, ok := child.(map[string]interface{}); ok {
				apply(next, parts[1:], mode)
			}
		}
		return
	}

	for k, value := range obj {
		if key != "*" && k != key {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		switch mode {
		case ModeHash:
			sum := sha256.Sum256([]byte(fmt.Sprintf("%v", value)))
			obj[k] = "hash:" + hex.EncodeToString(sum[:8])
		case ModeRemove:
			delete(obj, k)
		default:
			obj[k] = "***REDACTED***"
		}
	}
}
