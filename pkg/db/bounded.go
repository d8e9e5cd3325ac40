package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
)

// pgLockNotAvailable is raised when lock_timeout expires while waiting on a
// row lock.
const pgLockNotAvailable = "55P03"

// WithBoundedTx executes fn inside a transaction that is abandoned cleanly
// when either the overall budget or the per-lock wait budget is exhausted.
// Callers receive CodeTxTimeout and no partial state persists.
func (c *Client) WithBoundedTx(ctx context.Context, lockWait, budget time.Duration, fn func(tx *gorm.DB) error) error {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	err := c.WithTx(ctx, func(tx *gorm.DB) error {
		if lockWait > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockWait.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTxTimeout, err, "transaction budget exceeded")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return pkgerrors.Wrap(pkgerrors.CodeTxTimeout, err, "lock wait budget exceeded")
	}
	return err
}
