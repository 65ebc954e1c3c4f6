package logging

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Value patterns that are always secrets regardless of field name.
var (
	// JWT: three base64url segments separated by dots.
	jwtPattern = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)

	// Authorization header values.
	authSchemePattern = regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`)

	// URLs with embedded userinfo, e.g. an authenticated proxy or scrape target.
	urlCredentialsPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://[^/@\s]+:[^/@\s]+@`)
)

// DefaultRedactOptions returns the masq options applied to every log handler.
//
// Extend with project-specific options:
//
//	opts := append(logging.DefaultRedactOptions(), masq.WithFieldName("MySecretField"))
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, 24)

	for _, name := range []string{
		"password", "secret", "token", "apiKey", "apikey", "api_key",
		"accessToken", "access_token", "refreshToken", "refresh_token",
		"credential", "credentials", "authorization", "auth", "bearer",
		"cookie", "set_cookie", "session",
	} {
		opts = append(opts, masq.WithFieldName(name))
	}

	return append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(authSchemePattern),
		masq.WithRegex(urlCredentialsPattern),
	)
}

// NewReplaceAttr creates a ReplaceAttr function for slog.HandlerOptions
// that redacts sensitive data using DefaultRedactOptions plus opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}

// redactingHandler applies a ReplaceAttr function in front of a handler that
// does not support one itself (the charm pretty printer).
type redactingHandler struct {
	next    slog.Handler
	replace func([]string, slog.Attr) slog.Attr
	groups  []string
}

func newRedactingHandler(next slog.Handler, replace func([]string, slog.Attr) slog.Attr) *redactingHandler {
	return &redactingHandler{next: next, replace: replace}
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.replace(h.groups, a))
		return true
	})

	return h.next.Handle(ctx, out)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.replace(h.groups, a)
	}

	return &redactingHandler{next: h.next.WithAttrs(redacted), replace: h.replace, groups: h.groups}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	groups := append(append([]string(nil), h.groups...), name)

	return &redactingHandler{next: h.next.WithGroup(name), replace: h.replace, groups: groups}
}
