package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("auth.py::login", "auth.py::login"))
	assert.Equal(t, 1.0, similarity("AUTH.PY::LOGIN", "auth.py::login"))
	assert.Equal(t, 0.0, similarity("", "anything"))

	// A rename keeps most of the path in common.
	renamed := similarity("auth.py::OAuthProvider.authenticate", "auth.py::OAuthProvider.authorize")
	assert.Greater(t, renamed, matchCutoff)

	unrelated := similarity("auth.py::login", "billing/invoice.ts::render")
	assert.Less(t, unrelated, matchCutoff)
}

func TestClosestMatches(t *testing.T) {
	candidates := []string{
		"auth.py::OAuthProvider.authenticate",
		"auth.py::OAuthProvider.authorize",
		"billing/invoice.ts::render",
		"auth.py::OAuthProvider",
	}

	matches := closestMatches("auth.py::OAuthProvider.authenticat", candidates)
	assert.NotEmpty(t, matches)
	assert.Equal(t, "auth.py::OAuthProvider.authenticate", matches[0])
	assert.NotContains(t, matches, "billing/invoice.ts::render")
	assert.LessOrEqual(t, len(matches), maxSuggestions)
}

func TestClosestMatches_NoneAboveCutoff(t *testing.T) {
	matches := closestMatches("zzz", []string{"auth.py::login", "billing.go::Charge"})
	assert.Empty(t, matches)
}

func TestClosestMatches_DeterministicTieBreak(t *testing.T) {
	// Identical scores sort alphabetically.
	matches := closestMatches("abcdef", []string{"abcdeX", "abcdeY"})
	assert.Equal(t, []string{"abcdeX", "abcdeY"}, matches)
}
