// Package identity resolves the principal behind an incoming connection.
// Resolution never fails hard: anything short of a valid credential yields
// the anonymous identity, and policy about who may enter a room lives
// outside this server.
package identity

import "net/http"

// AnonymousName is the display name used for unauthenticated senders.
const AnonymousName = "Anonymous"

// Identity is the resolved principal of one connection.
type Identity struct {
	Authenticated bool
	Name          string
}

// Anonymous is the identity used when no credential is presented or
// resolution fails.
func Anonymous() Identity {
	return Identity{Name: AnonymousName}
}

// Provider resolves the identity attached to a request.
type Provider interface {
	Resolve(r *http.Request) Identity
}
