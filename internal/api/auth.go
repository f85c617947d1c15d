// Package api implements HTTP handlers and helpers for the huntnav service.
package api

import (
	"net/http"
	"strings"
)

type Principal struct {
	MemberID string
	Name     string
	Role     string // admin or member
}

// getPrincipal extracts the caller identity from a bearer token or headers.
// - If Authorization: Bearer is present, uses the configured verifier (dev/hmac/jwks).
// - Else falls back to headers for dev.
func (s *Server) getPrincipal(r *http.Request) Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return Principal{MemberID: pr.MemberID, Name: pr.Name, Role: pr.Role}
		}
	}
	id := r.Header.Get("X-Member-Id")
	name := r.Header.Get("X-Member-Name")
	role := r.Header.Get("X-Role")
	if id == "" {
		id = "m_demo"
	}
	if name == "" {
		name = "guest"
	}
	if role == "" {
		role = "admin"
	}
	return Principal{MemberID: id, Name: name, Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }
