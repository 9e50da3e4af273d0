package translation

import (
	"container/heap"
	"context"
	"time"

	"github.com/llm-translator-go/internal/services/ai"
)

// Priority orders queued requests. Higher runs first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// Request is one queued call to the translation client.
type Request struct {
	ID          string
	Fingerprint string
	Text        string
	Prompt      ai.Prompt
	Model       string
	Priority    Priority
	EnqueuedAt  time.Time

	seq     uint64
	index   int // position in the heap, -1 once popped
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	call    *call
}

// call is the shared outcome of a request. Every caller with the same
// fingerprint waits on done.
type call struct {
	done    chan struct{}
	result  string
	err     error
	waiters int
	req     *Request
}

// requestQueue is a heap ordered by priority, then arrival.
type requestQueue []*Request

func (q requestQueue) Len() int { return len(q) }

func (q requestQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	return q[i].seq < q[j].seq
}

func (q requestQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *requestQueue) Push(x any) {
	req := x.(*Request)
	req.index = len(*q)
	*q = append(*q, req)
}

func (q *requestQueue) Pop() any {
	old := *q
	n := len(old)
	req := old[n-1]
	old[n-1] = nil
	req.index = -1
	*q = old[:n-1]
	return req
}

var _ heap.Interface = (*requestQueue)(nil)
