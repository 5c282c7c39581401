package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const insertAccountScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("RPUSH", KEYS[2], ARGV[2])
return 1
`

var insertAccountLua = redis.NewScript(insertAccountScript)

// RedisStore keeps one key per account plus an ordered index of emails.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(redisClient redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "apt"
	}
	return &RedisStore{redis: redisClient, prefix: prefix}
}

func (s *RedisStore) accountKey(email string) string {
	return s.prefix + ":acct:" + email
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":accounts"
}

func (s *RedisStore) FindByEmail(ctx context.Context, email string) (Record, error) {
	data, err := s.redis.Get(ctx, s.accountKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}

// Insert stores rec unless its email is already registered. The existence
// check and the write run as one script.
func (s *RedisStore) Insert(ctx context.Context, rec Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	inserted, err := insertAccountLua.Run(ctx, s.redis,
		[]string{s.accountKey(rec.Email), s.indexKey()},
		data, rec.Email,
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if inserted == 0 {
		return ErrDuplicateEmail
	}
	return nil
}

func (s *RedisStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	const maxRetries = 4
	key := s.accountKey(email)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			rec, err := decodeRecord(data)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			rec.PasswordHash = passwordHash

			updated, err := encodeRecord(rec)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.Nil):
			return ErrNotFound
		case errors.Is(err, ErrCorrupt):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return fmt.Errorf("%w: update contention", ErrUnavailable)
}

// List returns accounts in registration order.
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	emails, err := s.redis.LRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(emails) == 0 {
		return nil, nil
	}

	keys := make([]string, len(emails))
	for i, email := range emails {
		keys[i] = s.accountKey(email)
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make([]Record, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
