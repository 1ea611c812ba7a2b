package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PurgeResult reports how many rows each step of an account purge touched.
type PurgeResult struct {
	UserExisted bool
	Rows        map[string]int64
}

type purgeStep struct {
	name  string
	query string
}

// Order matters: the users row goes last so a failed batch leaves the account visible.
var purgeSteps = []purgeStep{
	{"sessions", `DELETE FROM user_sessions WHERE user_id = $1`},
	{"orders", `DELETE FROM orders WHERE customer_id = $1`},
	{"deliveries", `UPDATE orders SET driver_id = NULL, updated_at = NOW() WHERE driver_id = $1 AND status IN ('Pending', 'Processing')`},
	{"verifications", `DELETE FROM verifications WHERE user_id = $1`},
	{"notifications", `DELETE FROM notifications WHERE user_id = $1`},
	{"menu_items", `DELETE FROM menu_items WHERE client_id = $1`},
	{"users", `DELETE FROM users WHERE id = $1`},
}

type PurgeRepository struct {
	pool *pgxpool.Pool
}

func NewPurgeRepository(pool *pgxpool.Pool) *PurgeRepository {
	return &PurgeRepository{pool: pool}
}

// PurgeUser removes a user and every record they own in one transaction.
// Purging an absent user succeeds with UserExisted false.
func (r *PurgeRepository) PurgeUser(ctx context.Context, userID string) (PurgeResult, error) {
	result := PurgeResult{Rows: make(map[string]int64, len(purgeSteps))}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, step := range purgeSteps {
			batch.Queue(step.query, userID)
		}

		br := tx.SendBatch(ctx, batch)
		for _, step := range purgeSteps {
			cmd, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("purge %s: %w", step.name, err)
			}
			result.Rows[step.name] = cmd.RowsAffected()
		}
		return br.Close()
	})
	if err != nil {
		return PurgeResult{}, err
	}

	result.UserExisted = result.Rows["users"] > 0
	return result, nil
}
