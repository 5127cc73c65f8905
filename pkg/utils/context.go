package utils

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	IdentityKey contextKey = "identity"
	TokenKey    contextKey = "token"
)

// Role names shared by the session layer and the services.
const (
	RoleCustomer  = "customer"
	RoleAssistant = "assistant"
	RoleAdmin     = "admin"
)

// Identity is the resolved caller of a request.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// IsStaff reports whether the caller works on the admin or assistant dashboard.
func (i Identity) IsStaff() bool {
	return i.Role == RoleAdmin || i.Role == RoleAssistant
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func SetIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	if !ok || identity.UserID == uuid.Nil {
		return Identity{}, false
	}
	return identity, true
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := GetIdentity(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return identity.UserID, true
}

// GetTokenFromContext mendapatkan token dari context
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok && token != ""
}

// SetTokenContext menambahkan token ke context
func SetTokenContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// SessionCookie carries the session token for browser clients.
const SessionCookie = "session_token"

// BearerToken extracts the session token from the Authorization header or
// the session cookie.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
