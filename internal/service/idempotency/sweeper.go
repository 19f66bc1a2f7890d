// Package idempotency содержит уборщик просроченных idempotency-ключей.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

const (
	// DefaultSweepInterval — пауза между проходами уборки.
	DefaultSweepInterval = 10 * time.Minute
	// DefaultSweepBatchSize — сколько записей удаляется одним запросом.
	DefaultSweepBatchSize = 500
)

var (
	sweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecom_idempotency_sweeps_total",
		Help: "Idempotency key sweep runs by result.",
	}, []string{"result"})
	sweptKeysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecom_idempotency_swept_keys_total",
		Help: "Expired idempotency keys removed by the sweeper.",
	})
)

// SweeperConfig задаёт параметры уборки.
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultSweeperConfig возвращает параметры уборки по умолчанию.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:  DefaultSweepInterval,
		BatchSize: DefaultSweepBatchSize,
	}
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultSweepInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultSweepBatchSize
	}
	return c
}

// Sweeper периодически удаляет idempotency-записи с истёкшим TTL.
// Удаление идёт порциями, чтобы один проход не держал длинную транзакцию.
type Sweeper struct {
	repo   domain.IdempotencyRepository
	cfg    SweeperConfig
	logger *log.Entry
}

// NewSweeper создаёт уборщик поверх репозитория idempotency-ключей.
func NewSweeper(repo domain.IdempotencyRepository, cfg SweeperConfig, logger *log.Entry) *Sweeper {
	if logger == nil {
		logger = log.WithField("component", "idempotency-sweeper")
	}
	return &Sweeper{
		repo:   repo,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Run выполняет уборку сразу и затем по расписанию до отмены контекста.
func (s *Sweeper) Run(ctx context.Context) {
	if s.repo == nil {
		s.logger.Warn("idempotency sweeper is disabled: repo is nil")
		return
	}

	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	removed, err := s.Sweep(ctx, time.Now().UTC())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		sweepsTotal.WithLabelValues("error").Inc()
		s.logger.WithError(err).Warn("idempotency sweep failed")
		return
	}

	sweepsTotal.WithLabelValues("ok").Inc()
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("expired idempotency keys removed")
	}
}

// Sweep удаляет записи с ttl <= before порциями BatchSize и возвращает
// число удалённых. Неполная порция означает, что просроченных больше нет.
func (s *Sweeper) Sweep(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	removed := 0
	for {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		n, err := s.repo.DeleteExpired(ctx, before, s.cfg.BatchSize)
		if err != nil {
			return removed, err
		}
		removed += n
		if n > 0 {
			sweptKeysTotal.Add(float64(n))
		}
		if n < s.cfg.BatchSize {
			return removed, nil
		}
	}
}
