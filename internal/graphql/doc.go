// Package graphql is the transport used to talk to the secrets backend.
//
// Every operation is a POST of {query, variables} to a single endpoint.
// Failures are classified so callers can tell them apart with errors.Is and
// errors.As:
//
//   - a deadline or transport timeout wraps errors.ErrTimeout
//   - any other transport failure wraps errors.ErrNetwork
//   - a response carrying an "errors" array is a *ResponseError
//
// The client never retries.
package graphql
