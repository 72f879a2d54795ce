// Package remote is the secret store backed by the GraphQL API.
//
// A Store is bound to one auth.Session. It resolves project and environment
// names against the catalog, downloads and opens secret envelopes, and seals
// and uploads reconciled secret sets. Per-secret cryptography runs in
// parallel; results are always assembled in server order.
//
// Fetch refuses to decrypt anything for an environment whose project the
// user is not a member of, and by default fails on the first secret that
// was not encrypted for the current session.
package remote
