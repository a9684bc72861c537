package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		wantErr     bool
		errContains string
	}{
		{name: "default env", provider: ""},
		{name: "memory", provider: "memory"},
		{name: "env", provider: "env"},
		{name: "vault", provider: "vault"},
		{name: "unknown provider", provider: "k8s", wantErr: true, errContains: "unsupported secret provider"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewStore(Config{Provider: tc.provider})
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, store)
		})
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(map[string]string{"hf/token": "hf_abc"})

	got, err := Resolve(ctx, store, "plain-key")
	require.NoError(t, err)
	assert.Equal(t, "plain-key", got)

	got, err = Resolve(ctx, store, "secret:hf/token")
	require.NoError(t, err)
	assert.Equal(t, "hf_abc", got)

	_, err = Resolve(ctx, store, "vault:missing")
	assert.Error(t, err)

	_, err = Resolve(ctx, nil, "vault:hf/token")
	assert.Error(t, err)

	_, err = Resolve(ctx, store, "secret:")
	assert.Error(t, err)
}

func TestEnvStore_KeyMapping(t *testing.T) {
	t.Setenv("HF_API_TOKEN", "from-env")
	got, err := NewEnvStore().Get(context.Background(), "hf/api-token")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}

func TestVaultStore_ReadsKVv2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/secret/data/inference/hf") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{"token": "vault-token-value"},
			},
		})
	}))
	defer srv.Close()

	store, err := NewVaultStore(VaultConfig{Address: srv.URL, Token: "root"})
	require.NoError(t, err)

	got, err := store.Get(context.Background(), "inference/hf#token")
	require.NoError(t, err)
	assert.Equal(t, "vault-token-value", got)

	_, err = store.Get(context.Background(), "inference/hf#missing")
	assert.Error(t, err)
}
