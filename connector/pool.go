package connector

import (
	"sync"
	"time"

	"github.com/depotline/connector-basic/metrics"
)

// poolKeepAlive is the idle duration after which a pool worker exits;
// a new one is spawned on the next submit if the pool is below size
// (spec.md §4.6).
const poolKeepAlive = 3 * time.Second

// executor is the dispatch surface a Connector submits tasks to: either
// the direct (synchronous, caller's goroutine) executor or pool.
type executor interface {
	submit(fn func())
	close()
}

// directExecutor runs fn synchronously on the caller's goroutine, used
// when worker-threads <= 1 or a batch holds a single task.
type directExecutor struct{}

func (directExecutor) submit(fn func()) { fn() }
func (directExecutor) close()           {}

// pool is the bounded fixed-size worker pool with an unbounded FIFO queue
// described in spec.md §4.6. Workers are spawned lazily as work arrives,
// up to size, and exit after poolKeepAlive of idleness; a later submit
// respawns them on demand.
type pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	size   int
	active int
	closed bool
	wg     sync.WaitGroup

	reg *metrics.Registry
}

func newPool(size int, reg *metrics.Registry) *pool {
	p := &pool{size: size, reg: reg}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *pool) submit(fn func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, fn)
	spawn := p.active < p.size
	if spawn {
		p.active++
		p.wg.Add(1)
	}
	p.reg.SetPoolQueueDepth(len(p.queue))
	p.cond.Broadcast()
	p.mu.Unlock()

	if spawn {
		go p.worker()
	}
}

func (p *pool) worker() {
	defer p.wg.Done()

	lastActive := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		for len(p.queue) == 0 && !p.closed {
			remaining := poolKeepAlive - time.Since(lastActive)
			if remaining <= 0 {
				p.active--
				return
			}
			p.waitWithTimeout(remaining)
		}
		if len(p.queue) == 0 { // closed and drained
			p.active--
			return
		}
		fn := p.queue[0]
		p.queue = p.queue[1:]
		p.reg.SetPoolQueueDepth(len(p.queue))

		p.mu.Unlock()
		fn()
		p.mu.Lock()
		lastActive = time.Now()
	}
}

// waitWithTimeout blocks on p.cond for up to timeout. The caller must hold
// p.mu; it is released while waiting and re-held on return, matching
// sync.Cond.Wait's contract.
func (p *pool) waitWithTimeout(timeout time.Duration) {
	timer := time.AfterFunc(timeout, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	p.cond.Wait()
	timer.Stop()
}

// close stops accepting new work and waits for queued work to drain and
// every worker to exit.
func (p *pool) close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}
