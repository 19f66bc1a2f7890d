// Package lock предоставляет распределённую блокировку с арендой (lease):
// ключ захватывается атомарным set-if-absent с TTL, освобождается явно либо
// по истечении аренды. Гарантия — не более одной живой аренды на ключ.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotHeld возвращается при попытке освободить аренду чужим или устаревшим токеном.
var ErrNotHeld = errors.New("lock is not held by this token")

// Provider описывает координатор блокировок, инжектируемый в движок
// резервирования. Реализации: Redis и in-memory (для тестов).
type Provider interface {
	// TryAcquire пытается захватить ключ на ttl. ok=false означает, что ключ
	// уже занят живой арендой; никакого ожидания внутри не происходит.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release снимает аренду, только если токен совпадает с текущим держателем.
	Release(ctx context.Context, key, token string) error
}
