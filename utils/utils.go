// Package utils provides utility functions for the application.
package utils

type ctxKey string

// Request-scoped context keys set by the HTTP layer
const (
	RequestIDKey  ctxKey = "X-Request-ID"
	UserAgentKey  ctxKey = "User-Agent"
	IPAddressKey  ctxKey = "IP-Address"
	EndpointKey   ctxKey = "Endpoint"
	TimeoutKey    ctxKey = "Timeout"
	CancelFuncKey ctxKey = "Cancel-Func"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// Deref returns the pointed-to value or the zero value for nil pointers.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
