package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps drafts in redis; an abandoned draft expires after its TTL.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func draftKey(userID string) string { return "wizard:draft:" + userID }
func lockKey(userID string) string  { return "wizard:submit:" + userID }

func (s *Store) Load(ctx context.Context, userID string) (Draft, error) {
	raw, err := s.client.Get(ctx, draftKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Draft{}, ErrDraftNotFound
		}
		return Draft{}, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

func (s *Store) Save(ctx context.Context, d Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(d.UserID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// Lock guards a submission; it returns false while another one is running.
func (s *Store) Lock(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(userID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock draft: %w", err)
	}
	return ok, nil
}

// Locked reports whether a submission currently holds the lock.
func (s *Store) Locked(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.Exists(ctx, lockKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check draft lock: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Unlock(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, lockKey(userID)).Err(); err != nil {
		return fmt.Errorf("unlock draft: %w", err)
	}
	return nil
}

// CountActive scans the live drafts; expired drafts are already gone.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, draftKey("*"), 200).Result()
		if err != nil {
			return total, fmt.Errorf("scan drafts: %w", err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}
