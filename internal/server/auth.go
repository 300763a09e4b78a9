package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/phred2026-cyber/adc-chat-2029/internal/room"
)

// Headers set by the auth gateway in front of the service once it has
// verified the caller's token.
const (
	HeaderUserID       = "X-User-Id"
	HeaderUsername     = "X-Username"
	HeaderProfileImage = "X-Profile-Image"
)

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("server: unauthenticated")

// Authenticator resolves the identity behind an upgrade request.
type Authenticator interface {
	Authenticate(r *http.Request) (room.Identity, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (room.Identity, error)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(r *http.Request) (room.Identity, error) {
	return f(r)
}

// HeaderAuthenticator trusts the identity headers forwarded by the gateway.
type HeaderAuthenticator struct{}

// Authenticate implements Authenticator.
func (HeaderAuthenticator) Authenticate(r *http.Request) (room.Identity, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return room.Identity{}, fmt.Errorf("%w: missing %s", ErrUnauthenticated, HeaderUserID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return room.Identity{}, fmt.Errorf("%w: bad %s %q", ErrUnauthenticated, HeaderUserID, raw)
	}
	name := strings.TrimSpace(r.Header.Get(HeaderUsername))
	if name == "" {
		return room.Identity{}, fmt.Errorf("%w: missing %s", ErrUnauthenticated, HeaderUsername)
	}
	return room.Identity{
		ID:        room.UserID(id),
		Name:      name,
		AvatarURL: strings.TrimSpace(r.Header.Get(HeaderProfileImage)),
	}, nil
}
