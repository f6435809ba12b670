// Package securitylog guarda os eventos de segurança do gateway num buffer
// circular em memória e detecta padrões suspeitos por IP.
//
// Todo evento também vai para o zerolog (WARN para rate limit e atividade
// suspeita, INFO para o resto) e para os Observers registrados.
package securitylog

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultCapacity   = 1000
	DefaultQueryLimit = 100
)

type Config struct {
	Capacity int
	Detector DetectorConfig
}

func DefaultConfig() Config {
	return Config{
		Capacity: DefaultCapacity,
		Detector: DefaultDetectorConfig(),
	}
}

// Observer recebe uma cópia de cada evento gravado (ex.: métricas).
type Observer interface {
	ObserveSecurityEvent(Event)
}

type Option func(*Logger)

func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(l *Logger) { l.log = log }
}

func WithObserver(o Observer) Option {
	return func(l *Logger) {
		if o != nil {
			l.observers = append(l.observers, o)
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(l *Logger) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// Logger é seguro para uso concorrente. Quando o buffer enche, o evento mais
// antigo é descartado.
type Logger struct {
	mu   sync.RWMutex
	ring []Event
	head int
	size int

	detector  DetectorConfig
	now       func() time.Time
	newID     func() string
	log       zerolog.Logger
	observers []Observer
}

func New(cfg Config, opts ...Option) *Logger {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	l := &Logger{
		ring:     make([]Event, cfg.Capacity),
		detector: cfg.Detector.withDefaults(),
		now:      time.Now,
		newID:    uuid.NewString,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) Capacity() int { return len(l.ring) }

func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Record grava o evento preenchendo ID e horário. Devolve a cópia gravada.
func (l *Logger) Record(ev Event) Event {
	ev = ev.clone()

	// horário lido sob o lock: a ordem do buffer é a ordem cronológica.
	l.mu.Lock()
	ev.ID = l.newID()
	ev.OccurredAt = l.now()
	l.ring[l.head] = ev
	l.head = (l.head + 1) % len(l.ring)
	if l.size < len(l.ring) {
		l.size++
	}
	l.mu.Unlock()

	l.emit(ev)
	for _, o := range l.observers {
		o.ObserveSecurityEvent(ev.clone())
	}
	return ev
}

func (l *Logger) emit(ev Event) {
	e := l.log.Info()
	if ev.Kind == KindRateLimit || ev.Kind == KindSuspiciousActivity {
		e = l.log.Warn()
	}
	e = e.Str("event_id", ev.ID).
		Str("type", string(ev.Kind)).
		Str("ip", ev.IP).
		Str("path", ev.Path)
	if ev.UserAgent != "" {
		e = e.Str("user_agent", ev.UserAgent)
	}
	if len(ev.Details) > 0 {
		e = e.Interface("details", ev.Details)
	}
	e.Msg("security event")
}

// at devolve o i-ésimo evento em ordem cronológica (0 = mais antigo).
// Exige l.mu.
func (l *Logger) at(i int) Event {
	oldest := (l.head - l.size + len(l.ring)) % len(l.ring)
	return l.ring[(oldest+i)%len(l.ring)]
}

// collect percorre do mais novo para o mais antigo e devolve até n eventos
// aceitos por match, em ordem cronológica.
func (l *Logger) collect(n int, match func(Event) bool) []Event {
	if n <= 0 {
		n = DefaultQueryLimit
	}
	out := make([]Event, 0, min(n, l.size))
	for i := l.size - 1; i >= 0 && len(out) < n; i-- {
		ev := l.at(i)
		if match == nil || match(ev) {
			out = append(out, ev.clone())
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Recent devolve os n eventos mais recentes (n <= 0 usa DefaultQueryLimit).
func (l *Logger) Recent(n int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(n, nil)
}

func (l *Logger) ByKind(kind Kind, n int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(n, func(e Event) bool { return e.Kind == kind })
}

func (l *Logger) ByIP(ip string, n int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(n, func(e Event) bool { return e.IP == ip })
}
