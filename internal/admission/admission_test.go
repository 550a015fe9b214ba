package admission

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoremilk/chat-gateway/internal/store"
	"github.com/scoremilk/chat-gateway/pkg/logger"
)

func newChecker() *Checker {
	return NewChecker(logger.NewLogger(logger.Config{Level: logger.DebugLevel, Output: io.Discard}))
}

func platforms() []store.Platform {
	return []store.Platform{
		{ID: "1", Name: "Foo", URL: "foo.com"},
		{ID: "2", Name: "Score Milk", URL: "https://scoremilk.com"},
	}
}

func TestExplicitNameMatches(t *testing.T) {
	res := newChecker().Check(platforms(), Request{PlatformName: "Foo"})

	require.True(t, res.IsValid)
	require.NotNil(t, res.Platform)
	assert.Equal(t, "Foo", res.Platform.Name)
}

func TestExplicitNameMismatchRejects(t *testing.T) {
	res := newChecker().Check(platforms(), Request{PlatformName: "Bar", Origin: "https://foo.com"})

	assert.False(t, res.IsValid)
	assert.Nil(t, res.Platform)
	assert.Contains(t, res.Error, "Invalid platform: Bar")
	assert.Contains(t, res.Error, "Foo")
	assert.Contains(t, res.Error, "Score Milk")
}

func TestOriginHeaderMatches(t *testing.T) {
	res := newChecker().Check(platforms(), Request{Origin: "https://foo.com"})

	require.True(t, res.IsValid)
	require.NotNil(t, res.Platform)
	assert.Equal(t, "Foo", res.Platform.Name)
}

func TestOriginCaseInsensitive(t *testing.T) {
	res := newChecker().Check(platforms(), Request{Origin: "https://FOO.com"})

	require.NotNil(t, res.Platform)
	assert.Equal(t, "Foo", res.Platform.Name)
}

func TestHostHeaderMatches(t *testing.T) {
	res := newChecker().Check(platforms(), Request{Host: "scoremilk.com"})

	require.True(t, res.IsValid)
	require.NotNil(t, res.Platform)
	assert.Equal(t, "Score Milk", res.Platform.Name)
}

func TestLocalhostFallbackUsesFirstPlatform(t *testing.T) {
	res := newChecker().Check(platforms(), Request{Host: "localhost:3000"})

	require.True(t, res.IsValid)
	require.NotNil(t, res.Platform)
	assert.Equal(t, "Foo", res.Platform.Name)
}

func TestLocalhostWithoutPlatformsFallsThrough(t *testing.T) {
	res := newChecker().Check(nil, Request{Host: "localhost:3000"})

	assert.True(t, res.IsValid)
	assert.Nil(t, res.Platform)
}

func TestNoSignalsAdmitsWithNilPlatform(t *testing.T) {
	res := newChecker().Check(platforms(), Request{})

	assert.True(t, res.IsValid)
	assert.Nil(t, res.Platform)
	assert.Empty(t, res.Error)
}

func TestUnknownOriginFallsThroughToPermissiveDefault(t *testing.T) {
	res := newChecker().Check(platforms(), Request{Origin: "https://stranger.example.com", Host: "gateway.internal"})

	assert.True(t, res.IsValid)
	assert.Nil(t, res.Platform)
}

func TestQueryParamTakesPrecedenceOverHeaders(t *testing.T) {
	// A valid Origin cannot rescue an explicitly wrong platform name.
	res := newChecker().Check(platforms(), Request{PlatformName: "Nope", Origin: "https://foo.com", Host: "foo.com"})

	assert.False(t, res.IsValid)
}

func TestUnparsableOriginIgnored(t *testing.T) {
	res := newChecker().Check(platforms(), Request{Origin: "::not a url::"})

	assert.True(t, res.IsValid)
	assert.Nil(t, res.Platform)
}

func TestUnparsableOriginLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	checker := NewChecker(logger.NewLogger(logger.Config{Level: logger.WarnLevel, Format: "json", Output: &buf}))

	res := checker.Check(platforms(), Request{Origin: "::not a url::"})

	assert.True(t, res.IsValid)
	assert.Contains(t, buf.String(), "failed to normalize URL")
	assert.Contains(t, buf.String(), "::not a url::")
}
