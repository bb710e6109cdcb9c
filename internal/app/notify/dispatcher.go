package notify

import (
	"context"
	"log"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/ports/out/notifier"
)

// Sink accepts notifications for asynchronous, best-effort delivery. Services
// call it synchronously; the sink decides how (and whether) delivery happens.
type Sink interface {
	Dispatch(msg notifier.Message, mentionEveryone bool)
}

type job struct {
	msg     notifier.Message
	mention bool
}

// Dispatcher delivers notifications on a background worker, decoupled from
// the request that produced them. Delivery failures are logged and dropped;
// they never reach the triggering caller. A full queue also drops (with a
// log line) rather than blocking a request.
type Dispatcher struct {
	n       notifier.Notifier
	jobs    chan job
	done    chan struct{}
	timeout time.Duration
}

func NewDispatcher(n notifier.Notifier, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &Dispatcher{
		n:       n,
		jobs:    make(chan job, queueSize),
		done:    make(chan struct{}),
		timeout: 10 * time.Second,
	}
	go d.run()
	return d
}

func (d *Dispatcher) Dispatch(msg notifier.Message, mentionEveryone bool) {
	select {
	case d.jobs <- job{msg: msg, mention: mentionEveryone}:
	default:
		log.Printf("notify: queue full, dropping %q", msg.Title)
	}
}

// Close stops accepting jobs, drains the queue, and waits for the worker.
func (d *Dispatcher) Close() {
	close(d.jobs)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for j := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.n.Send(ctx, j.msg, j.mention); err != nil {
			log.Printf("notify: send %q failed: %v", j.msg.Title, err)
		}
		cancel()
	}
}
