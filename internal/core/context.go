package core

import (
	"context"

	"github.com/JonMunkholm/royalty/internal/entitlement"
)

type contextKey string

const (
	ctxKeyPrincipal contextKey = "principal"
	ctxKeyIPAddress contextKey = "client_ip"
)

// ContextWithPrincipal attaches the acting principal, as resolved by the auth
// middleware.
func ContextWithPrincipal(ctx context.Context, p entitlement.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the principal attached by ContextWithPrincipal.
func PrincipalFromContext(ctx context.Context) (entitlement.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(entitlement.Principal)
	return p, ok
}

// ContextWithIPAddress adds the caller's IP address for import logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// GetIPAddressFromContext extracts IP address from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
