package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/phrazzld/pillbox-api/internal/platform/logger"
	"github.com/phrazzld/pillbox-api/internal/redact"
	"golang.org/x/time/rate"
)

// Config controls the dispatcher's throttling.
type Config struct {
	// RatePerSecond is the sustained number of deliveries per second.
	RatePerSecond float64

	// Burst is the number of deliveries allowed at once.
	Burst int
}

// Dispatcher routes a reminder to the notifier of each of its methods.
// It is safe for concurrent use.
type Dispatcher struct {
	notifiers map[string]Notifier
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher for the given method → notifier map.
func NewDispatcher(notifiers map[string]Notifier, cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	if len(notifiers) == 0 {
		return nil, ErrNoNotifiers
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	copied := make(map[string]Notifier, len(notifiers))
	for method, n := range notifiers {
		if n == nil {
			return nil, fmt.Errorf("notifier for method %q cannot be nil", method)
		}
		copied[method] = n
	}

	return &Dispatcher{
		notifiers: copied,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger.With(slog.String("component", "notify_dispatcher")),
	}, nil
}

// Methods returns the registered delivery methods in sorted order.
func (d *Dispatcher) Methods() []string {
	methods := make([]string, 0, len(d.notifiers))
	for m := range d.notifiers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Report is the outcome of delivering one reminder through each of its methods.
type Report struct {
	// Delivered lists the methods whose notifier accepted the reminder.
	Delivered []string

	// Failed maps each method whose delivery failed to its error.
	Failed map[string]error

	// Unsupported lists the methods with no registered notifier.
	Unsupported []string
}

// Err joins every unsupported method and delivery failure, or returns nil
// when there were none.
func (r Report) Err() error {
	var errs []error
	for _, method := range r.Unsupported {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownMethod, method))
	}
	failed := make([]string, 0, len(r.Failed))
	for method := range r.Failed {
		failed = append(failed, method)
	}
	sort.Strings(failed)
	for _, method := range failed {
		errs = append(errs, fmt.Errorf("deliver via %s: %w", method, r.Failed[method]))
	}
	return errors.Join(errs...)
}

// Deliver sends r through each of its methods once and reports the outcome
// per method. A failing or unsupported method does not stop delivery through
// the others.
func (d *Dispatcher) Deliver(ctx context.Context, r Reminder) Report {
	log := logger.FromContextOrDefault(ctx, d.logger)

	report := Report{Failed: make(map[string]error)}
	seen := make(map[string]bool, len(r.Methods))
	var waitErr error
	for _, method := range r.Methods {
		if seen[method] {
			continue
		}
		seen[method] = true

		n, ok := d.notifiers[method]
		if !ok {
			log.Warn("no notifier for reminding method",
				slog.String("method", method),
				slog.String("pill_id", r.PillID.String()))
			report.Unsupported = append(report.Unsupported, method)
			continue
		}

		if waitErr == nil {
			waitErr = d.limiter.Wait(ctx)
		}
		if waitErr != nil {
			report.Failed[method] = fmt.Errorf("rate limiter: %w", waitErr)
			continue
		}

		if err := n.Notify(ctx, method, r); err != nil {
			log.Error("reminder delivery failed",
				slog.String("method", method),
				slog.String("pill_id", r.PillID.String()),
				slog.String("error", redact.Error(err)))
			report.Failed[method] = err
			continue
		}
		report.Delivered = append(report.Delivered, method)
	}
	return report
}

// Dispatch delivers r through every one of its methods and joins all
// failures. See Deliver for the per-method outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, r Reminder) error {
	return d.Deliver(ctx, r).Err()
}
