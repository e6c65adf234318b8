package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists sessions in Redis. Each session lives at
// session:{id} as a JSON blob; a per-user set user_sessions:{user} indexes
// the sessions for listing.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore on an existing client. A zero ttl
// keeps sessions forever; otherwise every append refreshes the expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string { return "session:" + id }

func userKey(userID string) string { return "user_sessions:" + userID }

// Append adds entries to a session, creating the record on first use.
func (r *RedisStore) Append(ctx context.Context, sessionID, userID string, entries []Entry) error {
	if sessionID == "" {
		return fmt.Errorf("session id is empty")
	}
	rec, err := r.fetch(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return err
		}
		rec = &Record{
			SessionID: sessionID,
			UserID:    userID,
			Name:      deriveName(entries),
			CreatedAt: time.Now().Unix(),
		}
	}
	rec.Entries = append(rec.Entries, entries...)

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(sessionID), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := r.client.SAdd(ctx, userKey(rec.UserID), sessionID).Err(); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, userKey(rec.UserID), r.ttl).Err(); err != nil {
			return fmt.Errorf("refresh index expiry: %w", err)
		}
	}
	return nil
}

// Get retrieves a session by id.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	return r.fetch(ctx, sessionID)
}

// List returns the sessions belonging to a user, newest first.
func (r *RedisStore) List(ctx context.Context, userID string) ([]*Record, error) {
	ids, err := r.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read session index: %w", err)
	}

	var records []*Record
	var stale []any
	for _, id := range ids {
		rec, err := r.fetch(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				stale = append(stale, id)
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	if len(stale) > 0 {
		// expired sessions fall out of the index lazily
		r.client.SRem(ctx, userKey(userID), stale...)
	}
	sortNewestFirst(records)
	return records, nil
}

// Delete removes a session and its index entry.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	rec, err := r.fetch(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := r.client.SRem(ctx, userKey(rec.UserID), sessionID).Err(); err != nil {
		return fmt.Errorf("unindex session: %w", err)
	}
	return nil
}

func (r *RedisStore) fetch(ctx context.Context, sessionID string) (*Record, error) {
	b, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}
