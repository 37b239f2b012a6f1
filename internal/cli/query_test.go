package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qset/internal/queryir"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"null", nil},
		{"true", true},
		{"false", false},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"2.5", 2.5},
		{`"42"`, "42"},
		{`"null"`, "null"},
		{"Ann", "Ann"},
		{"a,b", "a,b"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.raw))
		})
	}
}

func TestParseLookups(t *testing.T) {
	p, err := parseLookups([]string{"age__gte=18", "status=active"})
	require.NoError(t, err)

	age, err := queryir.Lookup("age__gte", int64(18))
	require.NoError(t, err)
	status, err := queryir.Lookup("status", "active")
	require.NoError(t, err)
	assert.Equal(t, queryir.String(queryir.AndWith(age, status)), queryir.String(p))
}

func TestParseLookups_Empty(t *testing.T) {
	p, err := parseLookups(nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParseLookups_Errors(t *testing.T) {
	_, err := parseLookups([]string{"age"})
	assert.ErrorContains(t, err, "want lookup=value")

	_, err = parseLookups([]string{"=5"})
	assert.ErrorContains(t, err, "want lookup=value")

	_, err = parseLookups([]string{"name__contains=5"})
	assert.True(t, queryir.IsInvalidPredicate(err))
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"status=archived", "score=null", `title="7"`})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "archived", "score": nil, "title": "7"}, values)
}

func TestParseAssignments_Errors(t *testing.T) {
	_, err := parseAssignments([]string{"status"})
	assert.ErrorContains(t, err, "want field=value")

	_, err = parseAssignments([]string{"age=1", "age=2"})
	assert.ErrorContains(t, err, "field assigned twice")
}
