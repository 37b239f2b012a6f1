package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{"empty", "  \n ", nil},
		{"single without semicolon", "SELECT 1", []string{"SELECT 1"}},
		{"two", "SELECT 1; SELECT 2;", []string{"SELECT 1", "SELECT 2"}},
		{"semicolon in string", "INSERT INTO t VALUES ('a;b'); SELECT 1", []string{"INSERT INTO t VALUES ('a;b')", "SELECT 1"}},
		{"escaped quote", "INSERT INTO t VALUES ('it''s; fine')", []string{"INSERT INTO t VALUES ('it''s; fine')"}},
		{"quoted identifier", `SELECT "a;b" FROM t`, []string{`SELECT "a;b" FROM t`}},
		{"line comment", "-- setup; ignored\nSELECT 1;", []string{"SELECT 1"}},
		{"block comment", "/* a; b */ SELECT 1; /* trailing */", []string{"SELECT 1"}},
		{"empty statements", ";;SELECT 1;;", []string{"SELECT 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.script))
		})
	}
}
