// Package service contains the application-specific use cases. It
// orchestrates domain objects, the store interfaces and the reminder
// scheduler to fulfill the pill features exposed by the API.
//
// Every use case is a short sequential pipeline: look up the pill, check
// that the calling user owns it, validate the input, mutate, and persist.
// Creation additionally schedules the first reminder job.
//
// The service layer depends on domain entities and repository interfaces (from store),
// but never on specific infrastructure implementations.
package service
