// Package http serves a bound transito machine over a JSON HTTP API built on chi.
//
// Engine errors map to status codes through StatusCode: unknown actors are 404,
// duplicate identities and concurrency conflicts 409, failed entry actions, rejected
// events and schema violations 422.
package http
