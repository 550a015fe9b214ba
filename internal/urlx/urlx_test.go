package urlx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{name: "bare domain mixed case", raw: "Game.com", want: "game.com", valid: true},
		{name: "https url", raw: "https://game.com", want: "game.com", valid: true},
		{name: "http url with path and uppercase host", raw: "http://GAME.com/path", want: "game.com", valid: true},
		{name: "subdomain", raw: "https://play.game.com", want: "play.game.com", valid: true},
		{name: "host with port", raw: "localhost:3000", want: "localhost", valid: true},
		{name: "surrounding whitespace", raw: "  game.com  ", want: "game.com", valid: true},
		{name: "unparsable", raw: "::not a url::", valid: false},
		{name: "empty", raw: "", valid: false},
		{name: "whitespace only", raw: "   ", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalizeAgreesAcrossRegistrationAndLookup(t *testing.T) {
	registered, ok := Normalize("Game.com")
	assert.True(t, ok)

	origin, ok := Normalize("https://game.com")
	assert.True(t, ok)

	assert.Equal(t, registered, origin)
}
