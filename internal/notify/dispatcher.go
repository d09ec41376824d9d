package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"proctored-quiz-service/internal/domain"
)

// Dispatcher sends messages in the background. Failures are logged and never reach the caller.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     logrus.FieldLogger
	onDone  func(err error)

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender Sender, timeout time.Duration, log logrus.FieldLogger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout, log: log}
}

// OnDone registers a hook called after every delivery attempt (metrics).
func (d *Dispatcher) OnDone(fn func(err error)) {
	d.onDone = fn
}

// Notify queues msg for delivery and returns immediately.
func (d *Dispatcher) Notify(msg Message) {
	if msg.To == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.WithField("to", msg.To).Warn("dispatcher closed, dropping notification")
		return
	}
	d.wg.Add(1)
	go d.deliver(msg)
}

func (d *Dispatcher) deliver(msg Message) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.sender.Send(ctx, msg)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
		d.log.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).WithError(err).Warn("notification not delivered")
	}
	if d.onDone != nil {
		d.onDone(err)
	}
}

// Wait blocks until every queued message was attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting messages and waits for in-flight ones.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
