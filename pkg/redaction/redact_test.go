// Copyright 2026 fanjia1024
// Tests for field redaction

package redaction

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact_Wildcard(t *testing.T) {
	input := `{
		"Models": {
			"Tone":  {"Backend": {"APIKey": "hf_secret", "Model": "distilbert"}},
			"Image": {"Backend": {"APIKey": "", "Model": "resnet18"}}
		},
		"Secrets": {"Vault": {"Token": "s.root"}}
	}`

	out, err := Redact([]byte(input), ConfigSecrets)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	tone := got["Models"].(map[string]interface{})["Tone"].(map[string]interface{})["Backend"].(map[string]interface{})
	image := got["Models"].(map[string]interface{})["Image"].(map[string]interface{})["Backend"].(map[string]interface{})
	assert.Equal(t, "***REDACTED***", tone["APIKey"])
	assert.Equal(t, "distilbert", tone["Model"])
	assert.Equal(t, "", image["APIKey"])
	assert.NotContains(t, string(out), "s.root")
}

func TestRedact_Modes(t *testing.T) {
	out, err := Redact([]byte(`{"a":{"b":"secret","c":"keep"}}`), []FieldMask{{Path: "a.b", Mode: ModeHash}})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"b":"hash:`)
	assert.False(t, strings.Contains(string(out), "secret"))

	out, err = Redact([]byte(`{"a":{"b":"secret","c":"keep"}}`), []FieldMask{{Path: "a.b", Mode: ModeRemove}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"c":"keep"}}`, string(out))

	out, err = Redact([]byte(`{"a":1}`), []FieldMask{{Path: "missing.path", Mode: ModeRedact}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))

	_, err = Redact([]byte(`[1,2]`), ConfigSecrets)
	assert.Error(t, err)
}

func TestValue(t *testing.T) {
	type vault struct{ Token string }
	type secrets struct{ Vault vault }
	type cfg struct{ Secrets secrets }

	out, err := Value(cfg{Secrets: secrets{Vault: vault{Token: "s.abc"}}}, ConfigSecrets)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Secrets":{"Vault":{"Token":"***REDACTED***"}}}`, string(out))
}
