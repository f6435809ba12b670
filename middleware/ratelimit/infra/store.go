package infra

import (
	"sync"
	"time"

	"checkout-gateway/middleware/ratelimit/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxKeys = 100_000

// WindowStore é a implementação em memória de domain.WindowStore: um contador
// de janela fixa por (IP, path).
//
// Os registros ficam num LRU com capacidade máxima (IPs novos não crescem o
// mapa sem limite) e o janitor remove periodicamente as janelas já vencidas.
// O estado é local ao processo.
type WindowStore struct {
	mu           sync.Mutex
	records      *lru.Cache[domain.Key, domain.Record]
	maxKeys      int
	cleanupEvery time.Duration
	now          func() time.Time
}

type StoreOption func(*WindowStore)

// WithMaxKeys limita quantas chaves (IP, path) ficam em memória.
// Ao estourar, a chave usada há mais tempo é descartada.
func WithMaxKeys(n int) StoreOption {
	return func(s *WindowStore) { s.maxKeys = n }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

// WithClock troca o relógio usado pelo janitor.
func WithClock(now func() time.Time) StoreOption {
	return func(s *WindowStore) { s.now = now }
}

func NewWindowStore(opts ...StoreOption) *WindowStore {
	s := &WindowStore{
		maxKeys:      defaultMaxKeys,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxKeys <= 0 {
		s.maxKeys = defaultMaxKeys
	}
	// lru.New só falha com tamanho <= 0, já tratado acima.
	s.records, _ = lru.New[domain.Key, domain.Record](s.maxKeys)
	return s
}

func (s *WindowStore) MaxKeys() int                { return s.maxKeys }
func (s *WindowStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// CheckAndConsume implementa domain.WindowStore.
func (s *WindowStore) CheckAndConsume(key domain.Key, maxRequests int, window time.Duration, now time.Time) domain.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.records.Get(key)
	next, write, dec := domain.FixedWindow(rec, found, maxRequests, window, now)
	if write {
		s.records.Add(key, next)
	}
	return dec
}

// Peek devolve o registro atual sem alterar a ordem do LRU.
func (s *WindowStore) Peek(key domain.Key) (domain.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Peek(key)
}

func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Len()
}

// Cleanup remove as chaves cuja janela já venceu em now.
// Retorna quantas foram removidas.
func (s *WindowStore) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, k := range s.records.Keys() {
		rec, ok := s.records.Peek(k)
		if ok && now.After(rec.ResetAt) {
			s.records.Remove(k)
			removed++
		}
	}
	return removed
}

// StartJanitor inicia uma goroutine que limpa janelas vencidas periodicamente.
// Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup(s.now())
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
type DoneContext interface {
	Done() <-chan struct{}
}
