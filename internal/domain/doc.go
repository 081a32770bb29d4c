// Package domain contains the core business entities and rules of the
// application: pills, their recurrence rules, and the validation that turns
// submitted reminder input into a normalized rule. It is independent of any
// storage or delivery mechanism.
package domain
