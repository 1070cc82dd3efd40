package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mysql", MySQL},
		{"MariaDB", MySQL},
		{"postgresql", Postgres},
		{" pgx ", Postgres},
		{"sqlite3", SQLite},
		{"SQLite", SQLite},
		{"oracle", Oracle},
		{"godror", Oracle},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Normalize("db2")
	assert.EqualError(t, err, `dialect: unsupported dialect "db2"`)
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		query string
		want  []int
	}{
		{"select 1", nil},
		{"a = ?", []int{4}},
		{"a = ? and b in (?, ?)", []int{4, 16, 19}},
		{"g.label = '?' and a = ?", []int{22}},
		{`"wh?" = ? and ` + "`x?`" + ` = 'it''s?'`, []int{8}},
		{"a = 'unterminated ?", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Placeholders(tt.query))
		})
	}
}
