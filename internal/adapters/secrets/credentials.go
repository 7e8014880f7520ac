package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paygate-ir/payment-service/internal/domain/ports"
)

// MellatCredentials are the three-part credentials Behpardakht issues per
// terminal. They are merged into every SOAP request server-side and never
// reach the shopper.
type MellatCredentials struct {
	TerminalID string `json:"terminal_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// ZarinpalCredentials identify the merchant account at the aggregator.
type ZarinpalCredentials struct {
	MerchantID string `json:"merchant_id"`
}

// ResolveMellatCredentials fetches and decodes the Mellat credential secret.
// The secret value is a JSON document with terminal_id, username and password.
func ResolveMellatCredentials(ctx context.Context, manager ports.SecretManagerAdapter, path string) (*MellatCredentials, error) {
	secret, err := manager.GetSecret(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("resolve mellat credentials: %w", err)
	}

	var creds MellatCredentials
	if err := json.Unmarshal([]byte(secret.Value), &creds); err != nil {
		return nil, fmt.Errorf("decode mellat credentials: %w", err)
	}
	if creds.TerminalID == "" || creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("mellat credentials at %s are incomplete", path)
	}
	return &creds, nil
}

// ResolveZarinpalCredentials fetches and decodes the ZarinPal merchant secret.
// Plain-text secrets holding just the merchant id are accepted alongside the
// JSON form.
func ResolveZarinpalCredentials(ctx context.Context, manager ports.SecretManagerAdapter, path string) (*ZarinpalCredentials, error) {
	secret, err := manager.GetSecret(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("resolve zarinpal credentials: %w", err)
	}

	var creds ZarinpalCredentials
	if err := json.Unmarshal([]byte(secret.Value), &creds); err != nil || creds.MerchantID == "" {
		creds.MerchantID = secret.Value
	}
	if creds.MerchantID == "" {
		return nil, fmt.Errorf("zarinpal merchant id at %s is empty", path)
	}
	return &creds, nil
}
