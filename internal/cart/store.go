package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/chariotlab/atelier-api/internal/common"
)

// ErrConflict is returned when a write races a concurrent mutation past the
// bounded retry budget, or when the caller's expected version is stale.
var ErrConflict = common.NewAppError("VERSION_CONFLICT",
	"cart was modified concurrently", http.StatusConflict, nil)

// record is the envelope persisted under each cart key. Version increments
// on every successful write so callers can detect lost updates.
type record struct {
	Version int64      `json:"version"`
	Items   []LineItem `json:"items"`
}

// Store persists carts in Redis, one JSON envelope per cart.
type Store struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
	logger     zerolog.Logger
}

func NewStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Store {
	return &Store{client: client, ttl: ttl, maxRetries: 5, logger: logger}
}

func cartKey(id string) string {
	return "cart:" + id
}

// Load reads a cart envelope. A missing key yields an empty cart, and a
// corrupted payload is logged and replaced with an empty cart rather than
// failing the request.
func (s *Store) Load(ctx context.Context, id string) (record, error) {
	data, err := s.client.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return record{}, nil
		}
		return record{}, err
	}
	return s.decode(id, data), nil
}

// Init writes an empty envelope for a new cart id.
func (s *Store) Init(ctx context.Context, id string) (record, error) {
	rec := record{Version: 1, Items: []LineItem{}}
	data, err := json.Marshal(rec)
	if err != nil {
		return record{}, err
	}
	if err := s.client.Set(ctx, cartKey(id), data, s.ttl).Err(); err != nil {
		return record{}, err
	}
	return rec, nil
}

// Mutate applies fn to the current items under optimistic concurrency. The
// key is watched for the duration of the transaction; a concurrent write
// aborts the pipeline and the mutation is retried on a fresh read, up to the
// retry budget. When expected is non-nil the stored version must match it.
func (s *Store) Mutate(ctx context.Context, id string, expected *int64, fn func(items []LineItem) ([]LineItem, error)) (record, error) {
	key := cartKey(id)
	var out record

	txn := func(tx *redis.Tx) error {
		cur := record{}
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			cur = s.decode(id, data)
		case errors.Is(err, redis.Nil):
			// first write creates the envelope
		default:
			return err
		}
		if expected != nil && *expected != cur.Version {
			return ErrConflict
		}
		next, err := fn(cur.Items)
		if err != nil {
			return err
		}
		if next == nil {
			next = []LineItem{}
		}
		out = record{Version: cur.Version + 1, Items: next}
		payload, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Str("cart_id", id).Int("attempt", attempt+1).
				Msg("cart write raced, retrying")
			continue
		}
		return record{}, err
	}
	return record{}, ErrConflict
}

func (s *Store) decode(id string, data []byte) record {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn().Err(err).Str("cart_id", id).
			Msg("cart payload corrupted, starting over empty")
		return record{}
	}
	if rec.Items == nil {
		rec.Items = []LineItem{}
	}
	return rec
}
