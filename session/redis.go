package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the record under two keys, "<prefix>:token" and
// "<prefix>:user", written and deleted in one MULTI/EXEC transaction.
//
// It backs deployments where the portal client runs server-side (for example
// a backend-for-frontend holding one session per instance).
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "portal"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) tokenKey() string {
	return s.prefix + ":" + KeyToken
}

func (s *RedisStore) userKey() string {
	return s.prefix + ":" + KeyUser
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	if rec.Credential == "" {
		return ErrEmptyCredential
	}
	user, err := json.Marshal(rec.User)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(), rec.Credential, 0)
		pipe.Set(ctx, s.userKey(), user, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (Record, bool, error) {
	vals, err := s.redis.MGet(ctx, s.tokenKey(), s.userKey()).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(vals) != 2 {
		return Record{}, false, ErrCorruptRecord
	}

	tok, tokOK := vals[0].(string)
	usr, usrOK := vals[1].(string)
	switch {
	case !tokOK && !usrOK:
		return Record{}, false, nil
	case !tokOK || !usrOK || tok == "":
		return Record{}, false, ErrCorruptRecord
	}

	var user Profile
	if err := json.Unmarshal([]byte(usr), &user); err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return Record{Credential: tok, User: user}, true, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.tokenKey(), s.userKey())
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
