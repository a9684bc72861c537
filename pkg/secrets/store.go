// Copyright 2026 fanjia1024
// Secret management abstraction for backend credentials

package secrets

import (
	"context"
	"fmt"
	"strings"
)

// Store Secret 存储接口（只读为主，Set 用于开发环境预置）
type Store interface {
	// Get 获取 secret 值
	Get(ctx context.Context, key string) (string, error)

	// Set 设置 secret 值
	Set(ctx context.Context, key string, value string) error
}

// Config Secret Store 配置
type Config struct {
	Provider string      // vault | env | memory
	Vault    VaultConfig // provider=vault 时使用
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(nil), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}

// 引用前缀：api_key 以这些前缀开头时从 Store 读取，否则视为明文
var refPrefixes = []string{"vault:", "secret:"}

// Resolve 解析凭据引用；store 为 nil 或 ref 为明文时原样返回
func Resolve(ctx context.Context, store Store, ref string) (string, error) {
	for _, p := range refPrefixes {
		if !strings.HasPrefix(ref, p) {
			continue
		}
		key := strings.TrimPrefix(ref, p)
		if key == "" {
			return "", fmt.Errorf("empty secret reference %q", ref)
		}
		if store == nil {
			return "", fmt.Errorf("secret reference %q requires a secret store", ref)
		}
		return store.Get(ctx, key)
	}
	return ref, nil
}
