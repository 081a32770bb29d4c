// Package api handles incoming HTTP requests for pills: routing, request
// decoding, and response formatting. Every outcome, including failures, is
// rendered as JSON with user-visible flash messages; no error escapes a
// handler.
package api
