// Package api exposes the user resource operations as API Gateway proxy
// handlers.
//
// Each operation is a method on [Handler] taking an
// events.APIGatewayProxyRequest, so it can be bound to its own Lambda
// function or dispatched through [Handler.Route] from a single one.
// [NewRouter] serves the same handlers over net/http for local runs.
//
// Every response is JSON and carries the configured
// Access-Control-Allow-Origin header.
package api
