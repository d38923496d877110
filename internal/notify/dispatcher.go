// AngelaMos | 2026
// dispatcher.go

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher delivers mail off the request path. At most maxConcurrent
// sends run at once; failures are logged and never reach the caller.
type Dispatcher struct {
	mailer  Mailer
	timeout time.Duration
	sem     chan struct{}
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(
	mailer Mailer,
	timeout time.Duration,
	maxConcurrent int,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &Dispatcher{
		mailer:  mailer,
		timeout: timeout,
		sem:     make(chan struct{}, maxConcurrent),
		logger:  logger,
	}
}

func (d *Dispatcher) Dispatch(msg Message) {
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		d.sem <- struct{}{}
		defer func() { <-d.sem }()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.mailer.Send(ctx, msg); err != nil {
			d.logger.Error("email delivery failed",
				"component", "email",
				"to", maskAddress(msg.To),
				"subject", msg.Subject,
				"error", err,
			)
		}
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
