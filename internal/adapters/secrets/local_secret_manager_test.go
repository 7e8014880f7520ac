package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeSecretFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLocalGetSecretPlainText(t *testing.T) {
	dir := t.TempDir()
	writeSecretFile(t, dir, "merchant-id", "zp-merchant-uuid")

	manager := NewLocalSecretManager(dir, zap.NewNop())
	secret, err := manager.GetSecret(context.Background(), "merchant-id")
	require.NoError(t, err)
	assert.Equal(t, "zp-merchant-uuid", secret.Value)
}

func TestLocalGetSecretJSON(t *testing.T) {
	dir := t.TempDir()
	writeSecretFile(t, dir, "gateways/mellat/credentials",
		`{"value":"{\"terminal_id\":\"1234567\",\"username\":\"merchant\",\"password\":\"secret\"}","tags":{"env":"test"}}`)

	manager := NewLocalSecretManager(dir, zap.NewNop())
	secret, err := manager.GetSecret(context.Background(), "gateways/mellat/credentials")
	require.NoError(t, err)
	assert.Contains(t, secret.Value, "terminal_id")
	assert.Equal(t, "test", secret.Metadata["env"])
}

func TestLocalGetSecretNotFound(t *testing.T) {
	manager := NewLocalSecretManager(t.TempDir(), zap.NewNop())
	_, err := manager.GetSecret(context.Background(), "missing")
	assert.Error(t, err)
}

func TestResolveMellatCredentials(t *testing.T) {
	dir := t.TempDir()
	writeSecretFile(t, dir, "gateways/mellat/credentials",
		`{"terminal_id":"1234567","username":"merchant","password":"secret"}`)

	manager := NewLocalSecretManager(dir, zap.NewNop())
	creds, err := ResolveMellatCredentials(context.Background(), manager, "gateways/mellat/credentials")
	require.NoError(t, err)
	assert.Equal(t, "1234567", creds.TerminalID)
	assert.Equal(t, "merchant", creds.Username)
	assert.Equal(t, "secret", creds.Password)
}

func TestResolveMellatCredentialsIncomplete(t *testing.T) {
	dir := t.TempDir()
	writeSecretFile(t, dir, "creds", `{"terminal_id":"1234567"}`)

	manager := NewLocalSecretManager(dir, zap.NewNop())
	_, err := ResolveMellatCredentials(context.Background(), manager, "creds")
	assert.Error(t, err)
}

func TestResolveZarinpalCredentials(t *testing.T) {
	dir := t.TempDir()

	t.Run("json form", func(t *testing.T) {
		writeSecretFile(t, dir, "zp-json", `{"merchant_id":"zp-merchant-uuid"}`)
		manager := NewLocalSecretManager(dir, zap.NewNop())
		creds, err := ResolveZarinpalCredentials(context.Background(), manager, "zp-json")
		require.NoError(t, err)
		assert.Equal(t, "zp-merchant-uuid", creds.MerchantID)
	})

	t.Run("plain form", func(t *testing.T) {
		writeSecretFile(t, dir, "zp-plain", "bare-merchant-uuid")
		manager := NewLocalSecretManager(dir, zap.NewNop())
		creds, err := ResolveZarinpalCredentials(context.Background(), manager, "zp-plain")
		require.NoError(t, err)
		assert.Equal(t, "bare-merchant-uuid", creds.MerchantID)
	})
}

func TestSecretCacheTTL(t *testing.T) {
	cache := newSecretCache(true, 0)
	cache.set("k", nil)
	// Zero TTL expires immediately
	assert.Nil(t, cache.get("k"))

	disabled := newSecretCache(false, 0)
	disabled.set("k", nil)
	assert.Nil(t, disabled.get("k"))
}
