package dispatch

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/udp-sockets/errors"
)

// task is one unit of work on the queue.
type task struct {
	enqueued time.Time
	run      func() error
	fail     func(error)
	id       string
	op       errors.Op
	handle   int
}

// pool runs tasks on a fixed number of workers in submission order.
// The queue is unbounded so submit never blocks and never drops.
type pool struct {
	exec    func(*task)
	onDepth func(int)
	cond    *sync.Cond
	group   errgroup.Group
	queue   []*task
	mu      sync.Mutex
	closed  bool
}

func newPool(workers int, exec func(*task), onDepth func(int)) *pool {
	p := &pool{
		exec:    exec,
		onDepth: onDepth,
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.group.Go(func() error {
			p.work()
			return nil
		})
	}
	return p
}

// submit enqueues t. Returns false once the pool is stopping.
func (p *pool) submit(t *task) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, t)
	p.onDepth(len(p.queue))
	p.mu.Unlock()

	p.cond.Signal()
	return true
}

func (p *pool) next() (*task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}

	t := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.onDepth(len(p.queue))
	return t, true
}

func (p *pool) work() {
	for {
		t, ok := p.next()
		if !ok {
			return
		}
		p.exec(t)
	}
}

// stop rejects further submissions. Workers drain what is already queued
// and exit.
func (p *pool) stop() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// wait blocks until every worker has exited.
func (p *pool) wait() error {
	return p.group.Wait()
}

// depth returns the number of queued tasks.
func (p *pool) depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
