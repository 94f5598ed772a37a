// Package graphbook hosts two independent GraphQL services over MongoDB:
// a library catalog (books, authors, accounts) and a phonebook (persons,
// addresses, friend lists) with a real-time personAdded subscription.
//
// # Architecture
//
// Each service is one binary (cmd/library, cmd/phonebook) serving a single
// GraphQL endpoint over HTTP, with a websocket upgrade path for
// subscriptions. Requests flow through:
//
//   - gateway/graphql: parses and validates operations against the service
//     schema, then dispatches to statically typed resolver methods
//   - auth: resolves the Authorization header into a request context; a
//     missing, malformed, or stale bearer token downgrades the request to
//     anonymous instead of rejecting it
//   - library / phonebook: domain resolvers over a Store interface with
//     MongoDB and in-memory implementations
//   - eventbus: in-process topic pub/sub feeding the personAdded
//     subscription; delivery is at-most-once per listener with no replay
//
// Shared infrastructure lives in errors (classified error taxonomy), token
// (signed bearer tokens), config (validated startup configuration),
// mongostore (driver wrapper and error mapping), metric (prometheus
// registry), and service (logger setup and process lifecycle).
//
// The two services share no state; each owns its database and signing
// secret. Mutations are not transactional: the phonebook's addPerson
// performs its person insert and friends update as separate writes, and a
// failure between them is an accepted inconsistency window.
package graphbook
