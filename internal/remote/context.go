package remote

import "context"

type tokenKey struct{}

// WithAccessToken returns a context whose remote calls run as the identity
// behind token. Without a token calls use the anonymous API key.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func AccessToken(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}
