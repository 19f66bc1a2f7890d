// Package reservation реализует резервирование стока с двумя путями:
// прямым атомарным декрементом и путём с распределённой блокировкой
// для товаров с высокой конкуренцией.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/lock"
	"github.com/vladislavdragonenkov/ecom/internal/metrics"
)

const (
	// DefaultMaxAttempts — число попыток захвата блокировки до отказа.
	DefaultMaxAttempts = 10
	// DefaultBackoff — пауза между попытками захвата.
	DefaultBackoff = 50 * time.Millisecond
	// DefaultLeaseTTL — время жизни блокировки; страхует от упавшего держателя.
	DefaultLeaseTTL = 3 * time.Second
	// DefaultContentionThreshold — остаток, при котором включается путь с блокировкой.
	DefaultContentionThreshold = 1
)

// Config задаёт параметры резервирования.
type Config struct {
	MaxAttempts         int
	Backoff             time.Duration
	LeaseTTL            time.Duration
	ContentionThreshold int64
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:         DefaultMaxAttempts,
		Backoff:             DefaultBackoff,
		LeaseTTL:            DefaultLeaseTTL,
		ContentionThreshold: DefaultContentionThreshold,
	}
}

// Engine резервирует и освобождает сток поверх InventoryRepository.
type Engine struct {
	inventory domain.InventoryRepository
	locks     lock.Provider
	cfg       Config
	logger    *log.Entry
	metrics   *metrics.CheckoutMetrics
}

// NewEngine создаёт движок резервирования.
func NewEngine(inventory domain.InventoryRepository, locks lock.Provider, cfg Config, logger *log.Entry) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "reservation")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if cfg.ContentionThreshold <= 0 {
		cfg.ContentionThreshold = DefaultContentionThreshold
	}
	return &Engine{
		inventory: inventory,
		locks:     locks,
		cfg:       cfg,
		logger:    logger,
	}
}

// WithMetrics подключает метрики к движку.
func (e *Engine) WithMetrics(m *metrics.CheckoutMetrics) *Engine {
	e.metrics = m
	return e
}

// lockKey строит ключ блокировки для товара.
func lockKey(productID string) string {
	return fmt.Sprintf("lock_v2023_%s", productID)
}

// Reserve резервирует quantity единиц товара для корзины.
// Отказ по стоку или по таймауту блокировки возвращается как Outcome,
// а не как ошибка: это штатный исход, а не сбой инфраструктуры.
func (e *Engine) Reserve(ctx context.Context, productID string, quantity int64, cartID string) (domain.ReservationOutcome, error) {
	if productID == "" {
		return domain.ReservationOutcome{}, domain.ErrProductIDRequired
	}
	if quantity <= 0 {
		return domain.ReservationOutcome{}, domain.ErrItemQtyInvalid
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordReservationDuration(time.Since(start))
		}
	}()

	inv, err := e.inventory.Get(ctx, productID)

	var outcome domain.ReservationOutcome
	switch {
	case errors.Is(err, domain.ErrInventoryNotFound):
		// Товар без складской записи ведёт себя как нулевой остаток:
		// это штатный отказ, а не ошибка.
		e.logger.WithFields(log.Fields{
			"product_id": productID,
			"cart_id":    cartID,
		}).Debug("reservation declined: no inventory record")
		outcome = domain.ReservationOutcome{Committed: false, Reason: domain.DeclineReasonInsufficientStock}
	case err != nil:
		return domain.ReservationOutcome{}, err
	case e.locks != nil && inv.Stock <= e.cfg.ContentionThreshold:
		outcome, err = e.reserveLocked(ctx, productID, quantity, cartID)
	default:
		outcome, err = e.reserveDirect(ctx, productID, quantity, cartID)
	}
	if err != nil {
		return domain.ReservationOutcome{}, err
	}

	if e.metrics != nil {
		if outcome.Committed {
			e.metrics.RecordReservationCommitted()
		} else {
			e.metrics.RecordReservationDeclined(string(outcome.Reason))
		}
	}
	return outcome, nil
}

// reserveDirect выполняет атомарный условный декремент без блокировки.
func (e *Engine) reserveDirect(ctx context.Context, productID string, quantity int64, cartID string) (domain.ReservationOutcome, error) {
	applied, err := e.inventory.ReserveStock(ctx, productID, quantity, cartID)
	if err != nil {
		return domain.ReservationOutcome{}, err
	}
	if !applied {
		e.logger.WithFields(log.Fields{
			"product_id": productID,
			"cart_id":    cartID,
			"quantity":   quantity,
		}).Debug("reservation declined: insufficient stock")
		return domain.ReservationOutcome{Committed: false, Reason: domain.DeclineReasonInsufficientStock}, nil
	}
	return domain.ReservationOutcome{Committed: true}, nil
}

// reserveLocked резервирует под блокировкой: до MaxAttempts попыток захвата
// с паузой Backoff между ними; исчерпание попыток — отказ lock_timeout.
func (e *Engine) reserveLocked(ctx context.Context, productID string, quantity int64, cartID string) (domain.ReservationOutcome, error) {
	key := lockKey(productID)

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		token, acquired, err := e.locks.TryAcquire(ctx, key, e.cfg.LeaseTTL)
		if err != nil {
			return domain.ReservationOutcome{}, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if !acquired {
			if attempt == e.cfg.MaxAttempts {
				break
			}
			select {
			case <-ctx.Done():
				return domain.ReservationOutcome{}, ctx.Err()
			case <-time.After(e.cfg.Backoff):
			}
			continue
		}

		if e.metrics != nil {
			e.metrics.RecordLockAttempts(attempt)
		}

		outcome, reserveErr := e.reserveDirect(ctx, productID, quantity, cartID)
		if releaseErr := e.locks.Release(ctx, key, token); releaseErr != nil {
			// Блокировка могла истечь сама; резервирование уже применено.
			e.logger.WithError(releaseErr).WithField("lock_key", key).Warn("release lock failed")
		}
		return outcome, reserveErr
	}

	e.logger.WithFields(log.Fields{
		"product_id": productID,
		"cart_id":    cartID,
		"attempts":   e.cfg.MaxAttempts,
	}).Warn("reservation declined: lock acquisition timed out")
	if e.metrics != nil {
		e.metrics.RecordLockAttempts(e.cfg.MaxAttempts)
	}
	return domain.ReservationOutcome{Committed: false, Reason: domain.DeclineReasonLockTimeout}, nil
}

// Release возвращает зарезервированные единицы в сток (компенсация).
func (e *Engine) Release(ctx context.Context, productID string, quantity int64, cartID string) error {
	if quantity <= 0 {
		return domain.ErrItemQtyInvalid
	}
	applied, err := e.inventory.ReleaseStock(ctx, productID, quantity, cartID)
	if err != nil {
		return fmt.Errorf("release stock for %s: %w", productID, err)
	}
	if !applied {
		e.logger.WithFields(log.Fields{
			"product_id": productID,
			"cart_id":    cartID,
		}).Warn("release skipped: no matching reservation")
		return nil
	}
	e.logger.WithFields(log.Fields{
		"product_id": productID,
		"cart_id":    cartID,
		"quantity":   quantity,
	}).Debug("reservation released")
	return nil
}

var _ domain.StockReserver = (*Engine)(nil)
