package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestMakeSnippet_ShortContentUntouched(t *testing.T) {
	s := makeSnippet("short line", []string{"line"}, 150)
	assert.Equal(t, "short line", s)
	assert.NotContains(t, s, ellipsis)
}

func TestMakeSnippet_CentersOnFirstMatch(t *testing.T) {
	// Given a long text with the term deep inside
	prefix := strings.Repeat("aaaa ", 40)
	suffix := strings.Repeat("bbbb ", 40)
	content := prefix + "needle" + " " + suffix

	s := makeSnippet(content, []string{"needle"}, 60)

	// Then the snippet contains the match with ellipses on both sides
	assert.Contains(t, s, "needle")
	assert.True(t, strings.HasPrefix(s, ellipsis))
	assert.True(t, strings.HasSuffix(s, ellipsis))
	assert.LessOrEqual(t, len(s), 60+2*len(ellipsis))
}

func TestMakeSnippet_NoMatchTakesHead(t *testing.T) {
	content := strings.Repeat("word ", 100)
	s := makeSnippet(content, []string{"absent"}, 50)
	assert.True(t, strings.HasSuffix(s, ellipsis))
	assert.LessOrEqual(t, len(s), 50)
}

func TestMakeSnippet_RuneSafety(t *testing.T) {
	// Given multi-byte content around the window edges
	content := strings.Repeat("héllo wörld ", 50)
	s := makeSnippet(content, []string{"wörld"}, 40)
	assert.True(t, utf8.ValidString(s))

	s = makeSnippet(content, []string{"absent"}, 40)
	assert.True(t, utf8.ValidString(s))
}

func TestMakeSnippet_NewlinesFlattened(t *testing.T) {
	s := makeSnippet("line one\nline two\nline three", []string{"two"}, 150)
	assert.NotContains(t, s, "\n")
}

func TestHighlight(t *testing.T) {
	out := highlight("Error handling in the error path", []string{"error"})
	assert.Equal(t, "**Error** handling in the **error** path", out)

	// Whole words only
	out = highlight("terror errors error", []string{"error"})
	assert.Equal(t, "terror errors **error**", out)

	// Multiple terms
	out = highlight("parse the config file", []string{"parse", "config"})
	assert.Equal(t, "**parse** the **config** file", out)
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"error", "handler"}, queryTerms(`error AND handler`))
	assert.Equal(t, []string{"exact", "phrase"}, queryTerms(`"exact phrase"`))
	assert.Equal(t, []string{"path", "warn"}, queryTerms(`+path -warn`))
	assert.Nil(t, queryTerms("AND OR NOT"))
}
