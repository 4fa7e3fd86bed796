package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"actionScope/internal/model"
)

// Store provides Postgres persistence for transaction actions and token
// metadata.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// AppendActions inserts or replaces action records, keyed by
// (tx_hash, log_index, protocol).
func (s *Store) AppendActions(ctx context.Context, actions []model.TransactionAction) error {
	if len(actions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, action := range actions {
		payload, err := json.Marshal(action.Data)
		if err != nil {
			return fmt.Errorf("marshal action data: %w", err)
		}
		batch.Queue(`
			INSERT INTO transaction_actions (
				tx_hash, log_index, protocol, type, data, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (tx_hash, log_index, protocol)
			DO UPDATE SET
				type = EXCLUDED.type,
				data = EXCLUDED.data,
				updated_at = now()
		`,
			strings.ToLower(action.TxHash),
			int64(action.LogIndex),
			string(action.Protocol),
			action.Type,
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range actions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// DeleteActions removes stored actions for the given transactions, scoped to
// the listed protocols when non-empty.
func (s *Store) DeleteActions(ctx context.Context, txHashes []string, protocols []string) error {
	if len(txHashes) == 0 {
		return nil
	}
	hashes := make([]string, 0, len(txHashes))
	for _, hash := range txHashes {
		hashes = append(hashes, strings.ToLower(hash))
	}

	if len(protocols) == 0 {
		_, err := s.pool.Exec(ctx, `DELETE FROM transaction_actions WHERE tx_hash = ANY($1)`, hashes)
		return err
	}
	_, err := s.pool.Exec(ctx, `
		DELETE FROM transaction_actions WHERE tx_hash = ANY($1) AND protocol = ANY($2)
	`, hashes, protocols)
	return err
}

// TokenMetadata returns stored token metadata keyed by lower-cased address.
func (s *Store) TokenMetadata(ctx context.Context, addresses []string) (map[string]model.TokenMeta, error) {
	out := make(map[string]model.TokenMeta, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(addresses))
	for _, address := range addresses {
		keys = append(keys, strings.ToLower(address))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT lower(address), symbol, decimals FROM tokens WHERE lower(address) = ANY($1)
	`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var address string
		var symbol *string
		var decimals *int64
		if err := rows.Scan(&address, &symbol, &decimals); err != nil {
			return nil, err
		}
		meta := model.TokenMeta{Address: address}
		if symbol != nil {
			meta.Symbol = *symbol
		}
		if decimals != nil && *decimals >= 0 {
			meta.Decimals = uint64(*decimals)
			meta.HasDecimals = true
		}
		out[address] = meta
	}
	return out, rows.Err()
}
