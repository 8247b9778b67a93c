package canvas

import "sync"

// Executor runs collaborator calls off the UI loop. Go runs task somewhere
// else; the continuation task returns, if any, must then run on the loop
// that owns the canvas.
type Executor interface {
	Go(task func() func())
}

// SyncExecutor runs task and its continuation inline. It suits tests and
// batch tools where blocking the caller is fine.
type SyncExecutor struct{}

// Go implements Executor.
func (SyncExecutor) Go(task func() func()) {
	if cont := task(); cont != nil {
		cont()
	}
}

// QueueExecutor runs tasks on goroutines and queues their continuations
// for the owning loop, which drains them with Drain or by receiving from C.
type QueueExecutor struct {
	C  chan func()
	wg sync.WaitGroup
}

// NewQueueExecutor creates an executor whose continuation queue holds size
// entries before tasks block.
func NewQueueExecutor(size int) *QueueExecutor {
	return &QueueExecutor{C: make(chan func(), size)}
}

// Go implements Executor.
func (q *QueueExecutor) Go(task func() func()) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if cont := task(); cont != nil {
			q.C <- cont
		}
	}()
}

// Drain runs all queued continuations without blocking and returns how
// many ran.
func (q *QueueExecutor) Drain() int {
	n := 0
	for {
		select {
		case cont := <-q.C:
			cont()
			n++
		default:
			return n
		}
	}
}

// Wait blocks until every task started so far has finished and queued its
// continuation.
func (q *QueueExecutor) Wait() {
	q.wg.Wait()
}
