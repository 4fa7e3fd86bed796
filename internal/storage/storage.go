package storage

import (
	"context"

	"actionScope/internal/model"
)

// Store is the persistence contract the action pipeline depends on: rewrite
// deletes scoped by transaction and protocol, token metadata lookups, and
// appends of freshly derived actions. Schema detail stays behind it.
type Store interface {
	// DeleteActions removes stored actions for the given transactions,
	// restricted to the listed protocols when non-empty.
	DeleteActions(ctx context.Context, txHashes []string, protocols []string) error
	// TokenMetadata returns stored token metadata keyed by lower-cased
	// address. Unknown addresses are simply absent.
	TokenMetadata(ctx context.Context, addresses []string) (map[string]model.TokenMeta, error)
	// AppendActions persists new action records.
	AppendActions(ctx context.Context, actions []model.TransactionAction) error
}
