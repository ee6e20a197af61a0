package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey stores the request locale on the context.
var LocaleKey = localeContextKey{}

// Locale stores the best BCP 47 locale for the request, taken from the
// Accept-Language header. Handlers use it as the default donor locale when the
// intake payload does not name one.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	fallback := language.English
	if parsed, err := language.Parse(defaultLocale); err == nil {
		fallback = parsed
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := fallback
			if header := r.Header.Get("Accept-Language"); header != "" {
				if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
					tag = tags[0]
				}
			}
			ctx := context.WithValue(r.Context(), LocaleKey, tag.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the request locale, or "en".
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok && v != "" {
		return v
	}
	return "en"
}
