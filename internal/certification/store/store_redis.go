package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"calibra/internal/certification/models"
)

const (
	defaultRedisPrefix = "calibra:req:"
	pendingSuffix      = "#pending"

	fieldSubject     = "subject"
	fieldRecipient   = "recipient"
	fieldContentRef  = "content_reference"
	fieldResult      = "result"
	fieldFulfilled   = "fulfilled"
	fieldCreatedAt   = "created_at"   // unix nano
	fieldFulfilledAt = "fulfilled_at" // unix nano
)

// createScript inserts the hash only if the key is absent.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "subject", ARGV[1],
  "recipient", ARGV[2],
  "content_reference", ARGV[3],
  "result", "0",
  "fulfilled", "0",
  "created_at", ARGV[4])
redis.call("INCR", KEYS[2])
return 1
`)

// fulfillScript is the compare-and-set: -1 missing, -2 already fulfilled,
// otherwise the updated hash as a flat field/value list.
var fulfillScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
if redis.call("HGET", KEYS[1], "fulfilled") == "1" then
  return -2
end
redis.call("HSET", KEYS[1], "fulfilled", "1", "result", ARGV[1], "fulfilled_at", ARGV[2])
redis.call("DECR", KEYS[2])
return redis.call("HGETALL", KEYS[1])
`)

// RedisStore keeps each request in a hash; both mutations run as Lua
// scripts so the checks and writes are atomic on the server.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis builds a store under prefix (defaults to "calibra:req:").
func NewRedis(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(handle models.Handle) string {
	return s.prefix + string(handle)
}

// pendingKey holds the pending counter. Create refuses handles containing
// '#', so it cannot collide with a request key.
func (s *RedisStore) pendingKey() string {
	return s.prefix + pendingSuffix
}

func (s *RedisStore) Create(ctx context.Context, req *models.VerificationRequest) error {
	if req == nil || req.Handle == "" {
		return fmt.Errorf("verification request with handle is required")
	}
	if strings.Contains(string(req.Handle), "#") {
		return fmt.Errorf("handle %q contains reserved character '#'", req.Handle)
	}
	created, err := createScript.Run(ctx, s.client,
		[]string{s.key(req.Handle), s.pendingKey()},
		req.Subject, req.Recipient, req.ContentReference, req.CreatedAt.UnixNano(),
	).Int64()
	if err != nil {
		return fmt.Errorf("create verification request: %w", err)
	}
	if created == 0 {
		return ErrConflict
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, handle models.Handle) (*models.VerificationRequest, error) {
	fields, err := s.client.HGetAll(ctx, s.key(handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("get verification request: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return fromHash(handle, fields)
}

func (s *RedisStore) MarkFulfilled(ctx context.Context, handle models.Handle, result uint64, at time.Time) (*models.VerificationRequest, error) {
	raw, err := fulfillScript.Run(ctx, s.client,
		[]string{s.key(handle), s.pendingKey()},
		strconv.FormatUint(result, 10), at.UnixNano(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("mark verification request fulfilled: %w", err)
	}

	switch v := raw.(type) {
	case int64:
		if v == -1 {
			return nil, ErrNotFound
		}
		return nil, ErrAlreadyFulfilled
	case []any:
		fields, err := pairs(v)
		if err != nil {
			return nil, err
		}
		return fromHash(handle, fields)
	default:
		return nil, fmt.Errorf("unexpected fulfil script reply %T", raw)
	}
}

func (s *RedisStore) CountPending(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, s.pendingKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return n, nil
}

func pairs(flat []any) (map[string]string, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("odd hash reply length %d", len(flat))
	}
	out := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		k, ok1 := flat[i].(string)
		v, ok2 := flat[i+1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("non-string hash reply at %d", i)
		}
		out[k] = v
	}
	return out, nil
}

func fromHash(handle models.Handle, f map[string]string) (*models.VerificationRequest, error) {
	result, err := strconv.ParseUint(f[fieldResult], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse stored result: %w", err)
	}
	createdAt, err := strconv.ParseInt(f[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse stored created_at: %w", err)
	}
	req := &models.VerificationRequest{
		Handle:           handle,
		Subject:          f[fieldSubject],
		Recipient:        f[fieldRecipient],
		ContentReference: f[fieldContentRef],
		Result:           result,
		Fulfilled:        f[fieldFulfilled] == "1",
		CreatedAt:        time.Unix(0, createdAt).UTC(),
	}
	if raw, ok := f[fieldFulfilledAt]; ok && raw != "" {
		ns, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse stored fulfilled_at: %w", err)
		}
		t := time.Unix(0, ns).UTC()
		req.FulfilledAt = &t
	}
	return req, nil
}
