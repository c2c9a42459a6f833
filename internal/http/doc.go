// Package http exposes the reservation service over a JSON REST API. Handlers
// translate requests into application service calls and map service errors to
// HTTP status codes; they hold no business rules of their own.
package http
