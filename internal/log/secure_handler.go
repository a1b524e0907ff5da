package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// maskedKeys are attribute keys whose values are never logged. Keys are
// compared in lower case.
var maskedKeys = keySet(
	// request headers a site config may carry
	"authorization", "proxy-authorization", "cookie", "set-cookie",
	"x-api-key", "x-goog-api-key",
	// Maps credentials and paging state
	"key", "api_key", "apikey", "api-key", "next_page_token", "pagetoken",
	// generic secrets
	"password", "secret", "token", "access_token", "refresh_token",
	"session", "session_id", "sessionid", "sid",
	"credential", "credentials", "auth",
)

// maskedKeyParts mask any key containing one of them, e.g. "proxy_password".
// The bare "key" is not listed here so "keyword" and "place_key" stay readable.
var maskedKeyParts = []string{"password", "passwd", "secret", "token", "auth", "credential"}

// secretValues mask a string value whatever its key.
var secretValues = []*regexp.Regexp{
	// Google API key
	regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization values
	regexp.MustCompile(`(?i)^(bearer\s+.+|basic\s+[A-Za-z0-9+/=]+)$`),
	// opaque tokens
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
}

func keySet(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// secretQueryParam matches credential query parameters inside URLs and error
// messages. The Maps web services authenticate with "key=" in the query string,
// so any request URL that ends up in a log line carries the API key.
var secretQueryParam = regexp.MustCompile(`(?i)([?&](?:key|api_key|apikey|token|access_token|signature)=)[^&\s"']+`)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler masks credentials before records reach the wrapped handler.
// Values are masked as a whole when their key or shape marks them as
// secret. Credential query parameters inside URLs, messages and errors are
// masked in place so the rest of the URL stays readable.
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next. A nil next wraps slog.Default().Handler().
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, redactQuery(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(mask(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		masked = append(masked, mask(a))
	}
	return &SecureHandler{next: h.next.WithAttrs(masked)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

// mask returns a with secret values replaced by MaskValue. Groups are
// masked recursively.
func mask(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		group := v.Group()
		masked := make([]slog.Attr, 0, len(group))
		for _, g := range group {
			masked = append(masked, mask(g))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSecretKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	var text string
	switch v.Kind() {
	case slog.KindString:
		text = v.String()
		if isSensitiveValue(text) {
			return slog.String(a.Key, MaskValue)
		}
	case slog.KindAny:
		// Transport errors quote the request URL, key included.
		err, ok := v.Any().(error)
		if !ok || err == nil {
			return slog.Attr{Key: a.Key, Value: v}
		}
		text = err.Error()
	default:
		return slog.Attr{Key: a.Key, Value: v}
	}

	if redacted := redactQuery(text); redacted != text {
		return slog.String(a.Key, redacted)
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSecretKey reports whether values logged under key must be masked.
func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	if _, ok := maskedKeys[key]; ok {
		return true
	}
	return containsSensitiveKeyword(key)
}

// containsSensitiveKeyword reports whether key contains one of maskedKeyParts.
func containsSensitiveKeyword(key string) bool {
	for _, part := range maskedKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

// isSensitiveValue reports whether value has the shape of a credential.
func isSensitiveValue(value string) bool {
	for _, re := range secretValues {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// redactQuery masks credential query parameters in s.
func redactQuery(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}
	return secretQueryParam.ReplaceAllString(s, "${1}"+MaskValue)
}

// NewSecureLogger returns a text logger writing to w through a SecureHandler.
// verbose selects debug level; the default level is warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(newTextHandler(w, verbose)))
}

func newTextHandler(w io.Writer, verbose bool) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelFor(verbose)})
}

func levelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
