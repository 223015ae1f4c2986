package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// GetTyped retrieves key and unmarshals it into a new T.
func GetTyped[T any](ctx context.Context, c Service, key string) (T, error) {
	var obj T
	err := c.Get(ctx, key, &obj)
	return obj, err
}

// encode stores strings and byte slices as-is and everything else as JSON.
func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	default:
		return json.Marshal(value)
	}
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		out := make([]byte, len(data))
		copy(out, data)
		*d = out
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}
