package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type tokenContextKey struct{}

type requestIDContextKey struct{}

// withToken stows the raw Authorization header value in ctx.
func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// tokenFrom returns the Authorization header value stowed by the auth
// middleware, or "" for an anonymous request.
func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// withRequestID stows the per-request correlation id in ctx.
func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// requestIDFrom returns the correlation id stowed by the auth
// middleware, or "" outside an HTTP request.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// authMiddleware copies the Authorization header of every incoming
// request into the request context, where tool handlers pick it up,
// together with a correlation id that handler logs carry. A missing
// header is tolerated: the request proceeds anonymously.
func authMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		token := r.Header.Get("Authorization")
		if token == "" {
			logger.Warn("request without authorization header, proceeding anonymously",
				"request_id", requestID, "path", r.URL.Path)
		}

		ctx := withRequestID(withToken(r.Context(), token), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
