package jwtauth

import "github.com/notifyrelay/gateway/pkg/notifyerr"

// CheckBinding enforces the two checks the teacher's original source left
// as TODOs (spec §9 Design Notes): the request's aud must name the project
// identity key the client is actually talking to, and its app must match
// the project's declared dapp URL. Either mismatch is authentication
// failure, not a silently-accepted request.
func CheckBinding(aud, expectedAud, app, expectedApp string) error {
	if aud != expectedAud {
		return notifyerr.ErrIdentityNotAuthorized
	}
	if app != expectedApp {
		return notifyerr.ErrIdentityNotAuthorized
	}
	return nil
}
