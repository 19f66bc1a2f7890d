// Package health отдаёт liveness/readiness состояние сервиса оформления
// заказов: доступность хранилищ (MongoDB, PostgreSQL, Redis) и брокера.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status представляет состояние компонента или сервиса целиком.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Бюджет на все пробы разом. Зависший пинг базы не должен вешать probe.
const probeBudget = 3 * time.Second

// ProbeFunc проверяет доступность одного компонента.
type ProbeFunc func(ctx context.Context) error

// Component — результат одной пробы в теле ответа.
type Component struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Report — агрегированный ответ эндпоинта /health.
type Report struct {
	Status        Status      `json:"status"`
	CheckedAt     time.Time   `json:"checked_at"`
	Build         string      `json:"build,omitempty"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	Components    []Component `json:"components,omitempty"`
}

// Handler выполняет зарегистрированные пробы и собирает из них Report.
type Handler struct {
	mu      sync.RWMutex
	probes  map[string]ProbeFunc
	build   string
	started time.Time
}

// NewHandler создаёт health handler, build попадает в поле ответа.
func NewHandler(build string) *Handler {
	return &Handler{
		probes:  make(map[string]ProbeFunc),
		build:   build,
		started: time.Now(),
	}
}

// Register добавляет пробу компонента. Повторная регистрация под тем же
// именем замещает предыдущую пробу.
func (h *Handler) Register(name string, probe ProbeFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = probe
}

// run выполняет все пробы параллельно и возвращает компоненты по алфавиту.
func (h *Handler) run(ctx context.Context) ([]Component, Status) {
	ctx, cancel := context.WithTimeout(ctx, probeBudget)
	defer cancel()

	h.mu.RLock()
	probes := make(map[string]ProbeFunc, len(h.probes))
	for name, probe := range h.probes {
		probes[name] = probe
	}
	h.mu.RUnlock()

	var (
		wg         sync.WaitGroup
		resultsMu  sync.Mutex
		components []Component
	)
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe ProbeFunc) {
			defer wg.Done()

			start := time.Now()
			err := probe(ctx)

			c := Component{
				Name:       name,
				Status:     StatusHealthy,
				DurationMs: time.Since(start).Milliseconds(),
			}
			if err != nil {
				c.Status = StatusUnhealthy
				c.Error = err.Error()
			}

			resultsMu.Lock()
			components = append(components, c)
			resultsMu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })

	overall := StatusHealthy
	for _, c := range components {
		if c.Status == StatusUnhealthy {
			overall = StatusUnhealthy
			break
		}
	}
	return components, overall
}

// ServeHTTP отдаёт развёрнутый Report по всем компонентам.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	components, overall := h.run(r.Context())

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Report{
		Status:        overall,
		CheckedAt:     time.Now().UTC(),
		Build:         h.build,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Components:    components,
	})
}

// Readiness отвечает 503, пока хотя бы один компонент нездоров.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if _, overall := h.run(r.Context()); overall == StatusUnhealthy {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Liveness всегда отвечает 200: процесс жив, раз обработал запрос.
func Liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
