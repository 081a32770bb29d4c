// Package notify delivers pill reminders through the delivery methods chosen
// for each pill (e-mail, SMS, push...). Each method is served by a Notifier
// registered on a Dispatcher, which throttles outgoing deliveries.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownMethod is returned for a delivery method with no registered notifier.
	ErrUnknownMethod = errors.New("unknown reminding method")

	// ErrNoNotifiers is returned when a dispatcher is built without notifiers.
	ErrNoNotifiers = errors.New("no notifiers registered")
)

// Reminder is a single occurrence of a pill reminder to deliver.
type Reminder struct {
	UserID      uuid.UUID
	PillID      uuid.UUID
	Title       string
	Description string
	Icon        string
	Methods     []string
	FireAt      time.Time
}

// Notifier delivers a reminder through one delivery method.
type Notifier interface {
	Notify(ctx context.Context, method string, r Reminder) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, method string, r Reminder) error

// Notify calls f(ctx, method, r).
func (f NotifierFunc) Notify(ctx context.Context, method string, r Reminder) error {
	return f(ctx, method, r)
}
