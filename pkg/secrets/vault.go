// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string // Vault server address (e.g., http://vault:8200)
	Token      string // Vault token
	PathPrefix string // Secret path prefix (e.g., "secret/data")
}

type vaultStore struct {
	client     *vault.Client
	pathPrefix string
}

// NewVaultStore 创建 Vault secret store
func NewVaultStore(config VaultConfig) (Store, error) {
	cfg := vault.DefaultConfig()
	if config.Address != "" {
		cfg.Address = config.Address
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}

	prefix := "secret/data"
	if config.PathPrefix != "" {
		prefix = strings.TrimSuffix(config.PathPrefix, "/")
	}
	return &vaultStore{client: client, pathPrefix: prefix}, nil
}

// Get 读取 <prefix>/<path>；key 形如 "path#field"，未给 field 时取 "value" 或第一个字符串字段
func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	path, field, _ := strings.Cut(key, "#")
	secret, err := v.client.Logical().ReadWithContext(ctx, v.buildPath(path))
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	return pickField(secret.Data, field, key)
}

func (v *vaultStore) Set(ctx context.Context, key string, value string) error {
	path, field, _ := strings.Cut(key, "#")
	if field == "" {
		field = "value"
	}
	data := map[string]interface{}{field: value}
	if strings.Contains(v.pathPrefix, "/data") {
		data = map[string]interface{}{"data": data}
	}
	if _, err := v.client.Logical().WriteWithContext(ctx, v.buildPath(path), data); err != nil {
		return fmt.Errorf("failed to write secret to vault: %w", err)
	}
	return nil
}

func (v *vaultStore) buildPath(key string) string {
	return fmt.Sprintf("%s/%s", v.pathPrefix, strings.TrimPrefix(key, "/"))
}

// pickField 兼容 KV v1（字段在顶层）与 KV v2（字段在 data 下）
func pickField(data map[string]interface{}, field, key string) (string, error) {
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}
	if field == "" {
		field = "value"
	}
	if s, ok := data[field].(string); ok {
		return s, nil
	}
	if field == "value" {
		for _, val := range data {
			if s, ok := val.(string); ok {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("secret value not found: %s", key)
}
