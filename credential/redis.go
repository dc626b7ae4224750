package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each record as JSON under <prefix>:u:<normalized username>
// and the set of normalized usernames under <prefix>:users.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "cred"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) userKey(key string) string {
	return s.prefix + ":u:" + key
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":users"
}

func (s *RedisStore) Lookup(ctx context.Context, username string) (Record, error) {
	raw, err := s.redis.Get(ctx, s.userKey(NormalizeUsername(username))).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeRecord(raw)
}

// Create writes the record and its index entry in one MULTI under WATCH of
// the record key. A concurrent create of the same username aborts the
// transaction and reports ErrAlreadyExists.
func (s *RedisStore) Create(ctx context.Context, rec Record) error {
	key := NormalizeUsername(rec.Username)
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	userKey := s.userKey(key)
	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, userKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey, raw, 0)
			pipe.SAdd(ctx, s.indexKey(), key)
			return nil
		})
		return err
	}, userKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, redis.TxFailedErr):
		return ErrAlreadyExists
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, username string) error {
	key := NormalizeUsername(username)

	var del *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.userKey(key))
		pipe.SRem(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordHash rewrites the record under WATCH so a concurrent delete
// is not resurrected.
func (s *RedisStore) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	key := s.userKey(NormalizeUsername(username))

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return err
		}
		rec.PasswordHash = hash
		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	keys, err := s.redis.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(keys) == 0 {
		return []Record{}, nil
	}

	userKeys := make([]string, len(keys))
	for i, k := range keys {
		userKeys[i] = s.userKey(k)
	}
	values, err := s.redis.MGet(ctx, userKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make([]Record, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decodeRecord([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.redis.SCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}

func decodeRecord(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode credential record: %w", err)
	}
	return rec, nil
}
