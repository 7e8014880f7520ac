package ports

import "context"

// Secret is a single secret value with optional metadata.
type Secret struct {
	Metadata map[string]string
	Value    string
	Version  string
}

// SecretManagerAdapter resolves gateway credentials (Mellat terminal
// id/username/password, ZarinPal merchant id) at startup. Credentials are
// read-only shared configuration; there is no write path.
type SecretManagerAdapter interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
