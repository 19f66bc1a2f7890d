package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript удаляет ключ, только если его значение совпадает с токеном
// аренды. Без сравнения держатель с истёкшей арендой мог бы снять аренду
// следующего держателя.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisProvider реализует Provider поверх Redis: SET NX PX даёт атомарный
// set-if-absent с истечением на стороне сервера.
type RedisProvider struct {
	client *redis.Client
}

// NewRedisProvider оборачивает готовый redis-клиент.
func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

// TryAcquire выполняет SET key token NX PX ttl. Значением служит уникальный
// токен аренды, по которому позже проверяется право на освобождение.
func (p *RedisProvider) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := p.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx %q: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release снимает аренду через compare-and-delete скрипт.
func (p *RedisProvider) Release(ctx context.Context, key, token string) error {
	deleted, err := releaseScript.Run(ctx, p.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("redis release %q: %w", key, err)
	}
	if deleted == 0 {
		return ErrNotHeld
	}
	return nil
}

var _ Provider = (*RedisProvider)(nil)
