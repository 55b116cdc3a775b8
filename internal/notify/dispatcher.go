// Package notify delivers operator notifications in the background so that
// order operations never wait on, or fail because of, the operator channel.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-bot/internal/clock"
	"storefront-bot/internal/logger"
)

type Options struct {
	OperatorID  int64
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher queues messages and hands them to a Sink from one worker.
// Delivery is at most once: a full queue or a failed send drops the message.
type Dispatcher struct {
	sink   Sink
	opts   Options
	logger *logger.Logger
	clock  clock.Clock
	queue  chan Message
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sink Sink, opts Options, log *logger.Logger, clk clock.Clock) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 3 * time.Second
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if clk == nil {
		clk = clock.System{}
	}
	d := &Dispatcher{
		sink:   sink,
		opts:   opts,
		logger: log,
		clock:  clk,
		queue:  make(chan Message, opts.QueueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// NotifyOperator enqueues text for the operator and returns immediately.
func (d *Dispatcher) NotifyOperator(text string) {
	if d.opts.OperatorID == 0 {
		d.logger.Debug("NOTIFY", "no operator configured, message skipped")
		return
	}
	msg := Message{
		EventID:   uuid.New().String(),
		ChatID:    d.opts.OperatorID,
		Text:      text,
		CreatedAt: d.clock.Now(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("NOTIFY", fmt.Sprintf("queue full, dropping %s", msg.EventID))
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.send(msg)
	}
}

func (d *Dispatcher) send(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
	defer cancel()
	if err := d.sink.Send(ctx, msg); err != nil {
		d.logger.Error("NOTIFY", fmt.Sprintf("failed to deliver %s: %v", msg.EventID, err))
	}
}

// Close stops accepting messages and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
