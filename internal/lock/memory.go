package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// lease — одна живая аренда ключа.
type lease struct {
	token     string
	expiresAt time.Time
}

// MemoryProvider — in-memory реализация Provider для локальной разработки и
// тестов. Часы инжектируются, чтобы тесты могли «проматывать» время и
// проверять истечение аренды без реального ожидания.
type MemoryProvider struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewMemoryProvider возвращает провайдер с системными часами.
func NewMemoryProvider() *MemoryProvider {
	return NewMemoryProviderWithClock(time.Now)
}

// NewMemoryProviderWithClock позволяет подменить источник времени.
func NewMemoryProviderWithClock(now func() time.Time) *MemoryProvider {
	if now == nil {
		now = time.Now
	}
	return &MemoryProvider{
		leases: make(map[string]lease),
		now:    now,
	}
}

// TryAcquire захватывает ключ, если по нему нет живой аренды.
// Аренда с истёкшим TTL считается отсутствующей, даже если ещё не удалена.
func (p *MemoryProvider) TryAcquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if current, exists := p.leases[key]; exists && current.expiresAt.After(now) {
		return "", false, nil
	}

	token := uuid.NewString()
	p.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release снимает аренду по совпадению токена. Чужой или устаревший токен
// не должен снимать аренду следующего держателя.
func (p *MemoryProvider) Release(_ context.Context, key, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, exists := p.leases[key]
	if !exists || current.token != token {
		return ErrNotHeld
	}
	delete(p.leases, key)
	return nil
}

var _ Provider = (*MemoryProvider)(nil)
