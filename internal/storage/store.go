package storage

import "context"

// CredentialStore persists the opaque credential material of bot sessions,
// keyed by session key (the user ID for durable sessions)
type CredentialStore interface {
	// Load returns found=false when no credentials exist for key
	Load(ctx context.Context, key string) (creds []byte, found bool, err error)
	Save(ctx context.Context, key string, creds []byte) error
	// Delete is a no-op for unknown keys
	Delete(ctx context.Context, key string) error
}
