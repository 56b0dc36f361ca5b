package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// accountsSetKey indexes every onboarded account id.
const accountsSetKey = "accounts"

var errVersionMoved = errors.New("version moved")

// RedisStore keeps each account as a JSON record under account:<id>.
// Writes are WATCH/MULTI/EXEC transactions guarded by the record version.
type RedisStore struct {
	client     *redis.Client
	maxRetries int
}

func NewRedisStore(client *redis.Client, maxRetries int) *RedisStore {
	return &RedisStore{client: client, maxRetries: maxRetries}
}

// DialRedis opens a client and verifies the server answers.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, unavailable("dial "+addr, err)
	}
	return client, nil
}

func (s *RedisStore) name() string { return "redis" }

func (s *RedisStore) Get(ctx context.Context, id string) (State, error) {
	return s.load(ctx, id)
}

func (s *RedisStore) load(ctx context.Context, id string) (State, error) {
	raw, err := s.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, fmt.Errorf("account: get %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return State{}, unavailable("get "+id, err)
	}
	return decodeState(id, raw)
}

func decodeState(id string, raw []byte) (State, error) {
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, unavailable("decode "+id, err)
	}
	if st.Positions == nil {
		st.Positions = make(map[string]int64)
	}
	return st, nil
}

func (s *RedisStore) swap(ctx context.Context, expected uint64, next State) (bool, error) {
	key := Key(next.AccountID)
	data, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("account: encode %q: %w", next.AccountID, err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("account: swap %q: %w", next.AccountID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		cur, err := decodeState(next.AccountID, raw)
		if err != nil {
			return err
		}
		if cur.Version != expected {
			return errVersionMoved
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errVersionMoved), errors.Is(err, redis.TxFailedErr):
		return false, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnavailable):
		return false, err
	default:
		return false, unavailable("swap "+next.AccountID, err)
	}
}

func (s *RedisStore) Create(ctx context.Context, st State) error {
	st, err := prepareCreate(st)
	if err != nil {
		return err
	}
	key := Key(st.AccountID)
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("account: encode %q: %w", st.AccountID, err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("account: create %q: %w", st.AccountID, ErrExists)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, accountsSetKey, st.AccountID)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrExists):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("account: create %q: %w", st.AccountID, ErrExists)
	default:
		return unavailable("create "+st.AccountID, err)
	}
}

func (s *RedisStore) Update(ctx context.Context, id string, m Mutation) (State, error) {
	return update(ctx, s, id, m, s.maxRetries)
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, accountsSetKey).Result()
	if err != nil {
		return nil, unavailable("list", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
