// Package task manages background job queuing, processing, and lifecycle.
//
// Jobs are persisted by a JobStore and become due at their RunAt time. A
// Runner claims due jobs, executes them on a worker pool and retries failures
// with exponential backoff up to each job's attempt budget. Pill reminders
// are scheduled by ReminderScheduler and executed by ReminderHandler, which
// re-schedules the next occurrence after each delivery.
package task
