package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvLocaleDefaults(t *testing.T) {
	t.Setenv("LANG", "nl_NL.UTF-8")

	l := NewEnvLocale(time.UTC, "")
	got := l.Locale(context.Background())

	assert.Equal(t, "UTC", got.Timezone)
	assert.Equal(t, "nl-NL", got.Language)
}

func TestEnvLocaleConfiguredLanguageWins(t *testing.T) {
	t.Setenv("LANG", "nl_NL.UTF-8")

	l := NewEnvLocale(time.UTC, "en-AU")
	assert.Equal(t, "en-AU", l.Locale(context.Background()).Language)
}

func TestEnvLocaleRequestOverride(t *testing.T) {
	l := NewEnvLocale(time.UTC, "en-US")

	ctx := WithLocale(context.Background(), Locale{Timezone: "Asia/Tokyo"})
	got := l.Locale(ctx)

	assert.Equal(t, "Asia/Tokyo", got.Timezone)
	assert.Equal(t, "en-US", got.Language)
}
