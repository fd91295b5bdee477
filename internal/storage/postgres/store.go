package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lpMinter/internal/model"
)

// Schema creates the positions table used by UpsertPositions.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	chain_id      BIGINT      NOT NULL,
	token_id      NUMERIC     NOT NULL,
	record_id     TEXT        NOT NULL,
	pool_address  TEXT        NOT NULL,
	caller        TEXT        NOT NULL,
	token0        TEXT        NOT NULL,
	token1        TEXT        NOT NULL,
	fee           INTEGER     NOT NULL,
	liquidity     NUMERIC     NOT NULL,
	amount0       NUMERIC     NOT NULL,
	amount1       NUMERIC     NOT NULL,
	refund0       NUMERIC     NOT NULL,
	refund1       NUMERIC     NOT NULL,
	current_tick  INTEGER     NOT NULL,
	tick_lower    INTEGER     NOT NULL,
	tick_upper    INTEGER     NOT NULL,
	width         INTEGER     NOT NULL,
	tx_hash       TEXT        NOT NULL,
	block_number  BIGINT      NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, token_id)
)`

// Store provides Postgres persistence for minted positions.
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

// EnsureSchema creates the positions table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create positions table: %w", err)
	}
	return nil
}

// UpsertPositions inserts or updates minted positions.
func (s *Store) UpsertPositions(ctx context.Context, records []model.MintRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO positions (
				chain_id, token_id, record_id, pool_address, caller, token0, token1, fee,
				liquidity, amount0, amount1, refund0, refund1,
				current_tick, tick_lower, tick_upper, width, tx_hash, block_number, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,now(),now())
			ON CONFLICT (chain_id, token_id)
			DO UPDATE SET
				liquidity = EXCLUDED.liquidity,
				amount0 = EXCLUDED.amount0,
				amount1 = EXCLUDED.amount1,
				refund0 = EXCLUDED.refund0,
				refund1 = EXCLUDED.refund1,
				tx_hash = EXCLUDED.tx_hash,
				block_number = EXCLUDED.block_number,
				updated_at = now()
		`,
			int64(r.ChainID),
			r.TokenID,
			r.ID,
			r.Pool,
			r.Caller,
			r.Token0,
			r.Token1,
			int64(r.Fee),
			r.Liquidity,
			r.Amount0,
			r.Amount1,
			r.Refund0,
			r.Refund1,
			r.CurrentTick,
			r.TickLower,
			r.TickUpper,
			r.Width,
			r.TxHash,
			int64(r.BlockNumber),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert position: %w", err)
		}
	}
	return nil
}

// PutMintRecords lets the store act as a storage sink.
func (s *Store) PutMintRecords(ctx context.Context, records []model.MintRecord) error {
	return s.UpsertPositions(ctx, records)
}
