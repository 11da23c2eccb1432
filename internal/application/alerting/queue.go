package alerting

import "sync"

// Pair identifica un (ítem, ubicación). LocationID vacío = evaluación solo de vencimiento.
type Pair struct {
	ItemID     string
	LocationID string
}

// retryQueue evaluaciones fallidas pendientes para el barrido (sin duplicados).
type retryQueue struct {
	mu      sync.Mutex
	pending map[Pair]struct{}
}

func newRetryQueue() *retryQueue {
	return &retryQueue{pending: make(map[Pair]struct{})}
}

func (q *retryQueue) add(p Pair) {
	q.mu.Lock()
	q.pending[p] = struct{}{}
	q.mu.Unlock()
}

func (q *retryQueue) drain() []Pair {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Pair, 0, len(q.pending))
	for p := range q.pending {
		out = append(out, p)
	}
	q.pending = make(map[Pair]struct{})
	return out
}

func (q *retryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
