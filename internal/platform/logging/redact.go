package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Values that are secrets whatever key they are logged under.
var secretValues = []*regexp.Regexp{
	// store DSN in URL form with a password, e.g. postgres://user:pass@db/quotebook
	regexp.MustCompile(`^[a-z][a-z0-9+.-]*://[^/:@\s]+:[^@\s]+@`),
	// store DSN in key/value form, e.g. host=db password=...
	regexp.MustCompile(`(?i)(^|\s)password=\S+`),
	regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`),
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
}

// Keys whose values are never logged. Pagination cursors are logged under
// "cursor", so "token" stays on this list.
var secretKeys = []string{
	"password", "secret", "token", "dsn", "DSN",
	"authorization", "cookie", "api_key", "apiKey",
	"access_token", "refresh_token", "private_key",
}

// DefaultRedactOptions returns the masq options applied to every log record:
// store and cache credentials, auth headers and anything prefixed "secret".
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(secretKeys)+len(secretValues)+2)

	for _, key := range secretKeys {
		opts = append(opts, masq.WithFieldName(key))
	}

	opts = append(opts, masq.WithFieldPrefix("secret"), masq.WithFieldPrefix("private"))

	for _, re := range secretValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// NewReplaceAttr builds a slog ReplaceAttr that redacts with the default
// options plus extra.
func NewReplaceAttr(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), extra...)...)
}
