package usage

import (
	"context"
	"os"
	"strings"
	"time"
)

// LocaleProvider supplies the locale metadata attached to new sessions.
type LocaleProvider interface {
	Locale(ctx context.Context) Locale
}

// EnvLocale reports the server's timezone and a configured or environment-derived
// language tag.
type EnvLocale struct {
	Location *time.Location
	Language string
}

// NewEnvLocale builds an EnvLocale. An empty language falls back to $LANG.
func NewEnvLocale(loc *time.Location, language string) EnvLocale {
	if loc == nil {
		loc = time.Local
	}
	if language == "" {
		language = languageFromEnv(os.Getenv("LANG"))
	}
	return EnvLocale{Location: loc, Language: language}
}

// Locale implements LocaleProvider. Values placed on ctx with WithLocale take precedence.
func (e EnvLocale) Locale(ctx context.Context) Locale {
	out := Locale{Language: e.Language}
	if e.Location != nil {
		out.Timezone = e.Location.String()
	}

	if override, ok := ctx.Value(localeKey{}).(Locale); ok {
		if override.Timezone != "" {
			out.Timezone = override.Timezone
		}
		if override.Language != "" {
			out.Language = override.Language
		}
	}
	return out
}

type localeKey struct{}

// WithLocale returns a context carrying per-request locale overrides.
func WithLocale(ctx context.Context, l Locale) context.Context {
	return context.WithValue(ctx, localeKey{}, l)
}

// languageFromEnv converts a POSIX locale such as "en_US.UTF-8" to "en-US".
func languageFromEnv(lang string) string {
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(lang, "_", "-")
}
