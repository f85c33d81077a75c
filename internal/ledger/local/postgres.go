package local

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/information-sharing-networks/credential-ledger/internal/database"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger/contract"
)

// ledgerWriteLockID is the advisory lock that serialises ledger writes across server instances
const ledgerWriteLockID int64 = 0x6c6564676572 // "ledger"

// PostgresBackend stores the state and transaction log in postgres (see sql/schema).
//
// Writes take a transaction-scoped advisory lock, so concurrent writers (including other server
// instances sharing the database) are applied one at a time. Reads use a read-only repeatable read
// transaction so multi-key queries see a consistent snapshot.
type PostgresBackend struct {
	pool    *pgxpool.Pool
	queries *database.Queries
}

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool, queries: database.New(pool)}
}

func (p *PostgresBackend) View(ctx context.Context, fn func(state contract.State) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	return fn(&postgresState{ctx: ctx, queries: p.queries.WithTx(tx)})
}

func (p *PostgresBackend) Update(ctx context.Context, fn func(state contract.State, log TxLog) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// no-op once committed
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txQueries := p.queries.WithTx(tx)
	if err := txQueries.AcquireLedgerWriteLock(ctx, ledgerWriteLockID); err != nil {
		return fmt.Errorf("failed to acquire ledger write lock: %w", err)
	}

	if err := fn(&postgresState{ctx: ctx, queries: txQueries, writable: true}, &postgresTxLog{ctx: ctx, queries: txQueries}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Ping(ctx context.Context) error {
	_, err := p.queries.IsDatabaseRunning(ctx)
	return err
}

// Close is a no-op: the pool is owned by the caller.
func (p *PostgresBackend) Close() error { return nil }

// Transactions returns the transactions signed by signer, in nonce order.
func (p *PostgresBackend) Transactions(ctx context.Context, signer string) ([]Transaction, error) {
	rows, err := p.queries.ListTransactionsBySigner(ctx, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	out := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, Transaction{
			TxID:      row.TxID,
			Signer:    row.Signer,
			Nonce:     uint64(row.Nonce),
			Method:    row.Method,
			Args:      row.Args,
			Result:    row.Result,
			Timestamp: row.CreatedAt.Time,
		})
	}
	return out, nil
}

// postgresState adapts the generated queries to contract.State.
// The contract api has no context parameter, the state carries the transaction's context.
type postgresState struct {
	ctx      context.Context
	queries  *database.Queries
	writable bool
}

func (s *postgresState) GetState(key string) ([]byte, error) {
	value, err := s.queries.GetState(s.ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return value, err
}

func (s *postgresState) PutState(key string, value []byte) error {
	if !s.writable {
		return errReadOnly
	}
	return s.queries.UpsertState(s.ctx, database.UpsertStateParams{Key: key, Value: value})
}

func (s *postgresState) GetStateByPrefix(prefix string) ([][]byte, error) {
	rows, err := s.queries.ListStateByPrefix(s.ctx, prefix)
	if err != nil {
		return nil, err
	}
	values := make([][]byte, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.Value)
	}
	return values, nil
}

type postgresTxLog struct {
	ctx     context.Context
	queries *database.Queries
}

func (l *postgresTxLog) NextNonce(signer string) (uint64, error) {
	last, err := l.queries.GetLastNonce(l.ctx, signer)
	if err != nil {
		return 0, err
	}
	return uint64(last) + 1, nil
}

func (l *postgresTxLog) Append(tx Transaction) error {
	if tx.Nonce > math.MaxInt64 {
		return fmt.Errorf("nonce %d out of range", tx.Nonce)
	}
	_, err := l.queries.CreateTransaction(l.ctx, database.CreateTransactionParams{
		TxID:      tx.TxID,
		Signer:    tx.Signer,
		Nonce:     int64(tx.Nonce),
		Method:    tx.Method,
		Args:      tx.Args,
		Result:    tx.Result,
		CreatedAt: pgtype.Timestamptz{Time: tx.Timestamp, Valid: true},
	})
	return err
}
