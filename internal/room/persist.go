package room

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// job is a blocking call to an external collaborator. Its result comes back
// to the room loop as a command.
type job struct {
	name string
	run  func(ctx context.Context) Command
}

// persister runs jobs one at a time in submission order, so chat lines from
// one connection are stored and relayed in the order they were sent.
type persister struct {
	jobs    chan job
	timeout time.Duration
	log     *log.Logger
}

func newPersister(size int, timeout time.Duration, logger *log.Logger) *persister {
	if size < 1 {
		size = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &persister{
		jobs:    make(chan job, size),
		timeout: timeout,
		log:     logger,
	}
}

// enqueue never blocks the room loop. It reports false when the queue is full.
func (p *persister) enqueue(j job) bool {
	select {
	case p.jobs <- j:
		return true
	default:
		p.log.Warn("persistence queue full, dropping job", "job", j.name)
		return false
	}
}

// run executes jobs until ctx is cancelled, posting each result to results.
func (p *persister) run(ctx context.Context, results chan<- Command) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-p.jobs:
			jobCtx, cancel := context.WithTimeout(ctx, p.timeout)
			start := time.Now()
			res := j.run(jobCtx)
			cancel()
			p.log.Debug("job finished", "job", j.name, "took", time.Since(start))
			if res == nil {
				continue
			}
			select {
			case results <- res:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
