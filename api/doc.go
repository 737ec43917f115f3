// Package api defines the wire types of the HTTP surface. Handlers
// live in api/handlers.
package api
