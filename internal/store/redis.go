package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each record under its own key and orders them with a
// sorted set scored by a creation sequence, newest first. Every mutation touches
// only its own record.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	name   string
}

func NewRedisStore(rdb *redis.Client, name string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "uninotify:" + name, name: name}
}

func (s *RedisStore) Name() string { return s.name }

func (s *RedisStore) indexKey() string { return s.prefix + ":index" }

func (s *RedisStore) recordKey(id string) string { return s.prefix + ":record:" + id }

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.name, err)
	}
	records := make([]Record, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.name, err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// index entry outlived its record
			continue
		}
		rec, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.name, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisStore) Create(ctx context.Context, rec Record) (Record, error) {
	created := newRecord(rec)
	b, err := json.Marshal(created)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.name, err)
	}
	id := created.ID()
	seq, err := s.rdb.Incr(ctx, s.prefix+":seq").Result()
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", s.name, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(id), b, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", s.name, err)
	}
	return created, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	raw, err := s.rdb.Get(ctx, s.recordKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(s.name, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.name, err)
	}
	return decode(raw)
}

// Update runs an optimistic WATCH transaction; a concurrent writer on the
// same record makes it fail with redis.TxFailedErr instead of losing data.
func (s *RedisStore) Update(ctx context.Context, id string, patch Record) (Record, error) {
	key := s.recordKey(id)
	var updated Record
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return notFound(s.name, id)
		}
		if err != nil {
			return err
		}
		existing, err := decode(raw)
		if err != nil {
			return err
		}
		updated = merge(existing, patch)
		b, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", s.name, err)
	}
	return updated, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.name, err)
	}
	return nil
}

func decode(raw string) (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
