package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"calibra/internal/certification/models"
)

const uniqueViolation = "23505"

// PostgresStore persists requests in verification_requests. NUMERIC(20,0)
// holds the full uint64 result range, so results travel as decimal text.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `handle, subject, recipient, content_reference, result::text, fulfilled, created_at, fulfilled_at`

func (s *PostgresStore) Create(ctx context.Context, req *models.VerificationRequest) error {
	if req == nil || req.Handle == "" {
		return fmt.Errorf("verification request with handle is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_requests (handle, subject, recipient, content_reference, result, fulfilled, created_at)
		 VALUES ($1, $2, $3, $4, $5::numeric, FALSE, $6)`,
		string(req.Handle), req.Subject, req.Recipient, req.ContentReference,
		strconv.FormatUint(req.Result, 10), req.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("create verification request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, handle models.Handle) (*models.VerificationRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM verification_requests WHERE handle = $1`, string(handle))
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get verification request: %w", err)
	}
	return req, nil
}

// MarkFulfilled locks the row, validates and updates it in one transaction.
func (s *PostgresStore) MarkFulfilled(ctx context.Context, handle models.Handle, result uint64, at time.Time) (*models.VerificationRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mark fulfilled tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM verification_requests WHERE handle = $1 FOR UPDATE`, string(handle))
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock verification request: %w", err)
	}
	if req.Fulfilled {
		return nil, ErrAlreadyFulfilled
	}

	req.Fulfill(result, at)
	if _, err := tx.ExecContext(ctx,
		`UPDATE verification_requests SET fulfilled = TRUE, result = $2::numeric, fulfilled_at = $3 WHERE handle = $1`,
		string(handle), strconv.FormatUint(result, 10), at,
	); err != nil {
		return nil, fmt.Errorf("update verification request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mark fulfilled: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_requests WHERE fulfilled = FALSE`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return n, nil
}

func scanRequest(row *sql.Row) (*models.VerificationRequest, error) {
	var (
		req         models.VerificationRequest
		handle      string
		result      string
		fulfilledAt sql.NullTime
	)
	if err := row.Scan(&handle, &req.Subject, &req.Recipient, &req.ContentReference,
		&result, &req.Fulfilled, &req.CreatedAt, &fulfilledAt); err != nil {
		return nil, err
	}
	n, err := strconv.ParseUint(result, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse stored result %q: %w", result, err)
	}
	req.Handle = models.Handle(handle)
	req.Result = n
	if fulfilledAt.Valid {
		t := fulfilledAt.Time
		req.FulfilledAt = &t
	}
	return &req, nil
}
