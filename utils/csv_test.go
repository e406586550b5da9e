package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected rune
	}{
		{"comma", "name,email,phone\na,b,c\n", ','},
		{"semicolon", "name;email;phone\na;b;c\n", ';'},
		{"tab", "name\temail\tphone\na\tb\tc\n", '\t'},
		{"pipe", "name|email|phone\na|b|c\n", '|'},
		{"semicolon wins over commas in values", "name;note\na;\"one, two\"\nb;\"x, y\"\nc;z\nd;w\ne;v\n", ';'},
		{"no delimiter defaults to comma", "name\nalice\n", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectDelimiter([]byte(tt.data)))
		})
	}
}

func TestParseCSV(t *testing.T) {
	t.Run("parses headers and rows", func(t *testing.T) {
		doc, err := ParseCSV([]byte("name,email\nAlice,alice@example.com\nBob,bob@example.com\n"), CSVOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "email"}, doc.Headers)
		assert.Equal(t, 2, doc.RowCount())
		assert.Equal(t, []string{"Alice", "alice@example.com"}, doc.Rows[0])
	})

	t.Run("auto-detects semicolon delimiter", func(t *testing.T) {
		doc, err := ParseCSV([]byte("name;email\nAlice;alice@example.com\n"), CSVOptions{})
		require.NoError(t, err)
		assert.Equal(t, ';', doc.Delimiter)
		assert.Equal(t, []string{"name", "email"}, doc.Headers)
	})

	t.Run("strips UTF-8 BOM from first header", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,email\nAlice,a@example.com\n")...)
		doc, err := ParseCSV(data, CSVOptions{})
		require.NoError(t, err)
		assert.Equal(t, "name", doc.Headers[0])
	})

	t.Run("skips blank rows", func(t *testing.T) {
		doc, err := ParseCSV([]byte("name,email\nAlice,a@example.com\n,\n\" \",\"\"\nBob,b@example.com\n"), CSVOptions{})
		require.NoError(t, err)
		assert.Equal(t, 2, doc.RowCount())
	})

	t.Run("preserves ragged row lengths", func(t *testing.T) {
		doc, err := ParseCSV([]byte("name,email,phone\nAlice,a@example.com\nBob,b@example.com,+31612345678,extra\n"), CSVOptions{})
		require.NoError(t, err)
		assert.Len(t, doc.Rows[0], 2)
		assert.Len(t, doc.Rows[1], 4)
	})

	t.Run("rejects oversized input outright", func(t *testing.T) {
		_, err := ParseCSV([]byte("name,email\nAlice,a@example.com\n"), CSVOptions{MaxBytes: 10})
		assert.ErrorIs(t, err, ErrCSVTooLarge)
	})

	t.Run("rejects too many rows instead of truncating", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("name,email\n")
		for i := 0; i < 5; i++ {
			b.WriteString("Alice,a@example.com\n")
		}
		_, err := ParseCSV([]byte(b.String()), CSVOptions{MaxRows: 4})
		assert.ErrorIs(t, err, ErrCSVTooManyRows)
	})

	t.Run("row count at the limit passes", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("name,email\n")
		for i := 0; i < 4; i++ {
			b.WriteString("Alice,a@example.com\n")
		}
		doc, err := ParseCSV([]byte(b.String()), CSVOptions{MaxRows: 4})
		require.NoError(t, err)
		assert.Equal(t, 4, doc.RowCount())
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		_, err := ParseCSV([]byte(""), CSVOptions{})
		assert.ErrorIs(t, err, ErrCSVEmpty)
	})

	t.Run("single column header is rejected", func(t *testing.T) {
		_, err := ParseCSV([]byte("name\nAlice\n"), CSVOptions{})
		assert.ErrorIs(t, err, ErrCSVSingleColumn)
	})
}
