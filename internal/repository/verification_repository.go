package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridedesk/internal/models"
)

var ErrVerificationNotFound = errors.New("verification not found")

type VerificationRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

// Create writes the decision record and the driver's notice in one transaction.
func (r *VerificationRepository) Create(ctx context.Context, v models.Verification, notice models.Notification) error {
	documents, err := json.Marshal(v.Documents)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	facial, err := json.Marshal(v.Facial)
	if err != nil {
		return fmt.Errorf("encode facial: %w", err)
	}

	const insertVerification = `
		INSERT INTO verifications (id, user_id, vehicle_type, status, decision, documents, facial, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertVerification, v.ID, v.UserID, v.VehicleType, v.Status, v.Decision, documents, facial); err != nil {
			return fmt.Errorf("insert verification: %w", err)
		}
		if _, err := tx.Exec(ctx, insertNotification, notice.ID, notice.UserID, notice.Message, notice.IsRead, notice.Link); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return nil
	})
}

func (r *VerificationRepository) LatestByUser(ctx context.Context, userID string) (models.Verification, error) {
	const query = `
		SELECT id, user_id, vehicle_type, status, decision, documents, facial, reviewed_by, reviewed_at, review_outcome, created_at
		FROM verifications WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var (
		v         models.Verification
		documents []byte
		facial    []byte
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&v.ID,
		&v.UserID,
		&v.VehicleType,
		&v.Status,
		&v.Decision,
		&documents,
		&facial,
		&v.ReviewedBy,
		&v.ReviewedAt,
		&v.ReviewOutcome,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Verification{}, ErrVerificationNotFound
		}
		return models.Verification{}, err
	}
	if err := json.Unmarshal(documents, &v.Documents); err != nil {
		return models.Verification{}, fmt.Errorf("decode documents: %w", err)
	}
	if err := json.Unmarshal(facial, &v.Facial); err != nil {
		return models.Verification{}, fmt.Errorf("decode facial: %w", err)
	}
	return v, nil
}

// RecordReview stamps the admin decision on the user's latest submission.
func (r *VerificationRepository) RecordReview(ctx context.Context, userID, reviewerID string, outcome models.ReviewOutcome) error {
	const query = `
		UPDATE verifications
		SET reviewed_by = $2, reviewed_at = NOW(), review_outcome = $3
		WHERE id = (
			SELECT id FROM verifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1
		)
	`
	cmd, err := r.pool.Exec(ctx, query, userID, reviewerID, outcome)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVerificationNotFound
	}
	return nil
}
