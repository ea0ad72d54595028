package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - operation: submit
    kind: extension
    capability: "extensions:submit"
    effect: allow
  - operation: view-inactive
    capability: "catalog:view-inactive"
    effect: allow
`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, OpSubmit, rules[0].Operation)
	assert.Equal(t, "extension", rules[0].Kind)
	assert.Equal(t, CapSubmitExtensions, rules[0].Capability)
	assert.Equal(t, EffectAllow, rules[0].Effect)
	assert.Empty(t, rules[1].Kind)
}

func TestLoadRulesRejectsBadEffect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - operation: submit
    effect: maybe
`), 0o644))

	_, err := LoadRules(path)
	assert.ErrorContains(t, err, "effect must be allow or deny")
}

func TestLoadRulesRejectsMissingOperation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - effect: allow
`), 0o644))

	_, err := LoadRules(path)
	assert.ErrorContains(t, err, "operation is required")
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
