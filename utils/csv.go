package utils

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSV ingestion failure reasons.
var (
	ErrCSVTooLarge     = errors.New("file exceeds maximum allowed size")
	ErrCSVTooManyRows  = errors.New("file exceeds maximum allowed row count")
	ErrCSVEmpty        = errors.New("file contains no header row")
	ErrCSVSingleColumn = errors.New("could not detect a column delimiter")
)

// CSVOptions controls parsing limits. A zero Delimiter enables auto-detection
// over comma, semicolon, tab and pipe.
type CSVOptions struct {
	MaxRows   int
	MaxBytes  int64
	Delimiter rune
}

// CSVDocument is a fully parsed delimited file. Headers holds the first row;
// Rows holds every subsequent row with ragged lengths preserved.
type CSVDocument struct {
	Headers   []string
	Rows      [][]string
	Delimiter rune
}

// RowCount returns the number of data rows, excluding the header.
func (d *CSVDocument) RowCount() int {
	return len(d.Rows)
}

var csvCandidateDelimiters = []rune{',', ';', '\t', '|'}

// DetectDelimiter guesses the column delimiter by counting candidate
// occurrences across the first few lines and picking the highest total.
func DetectDelimiter(data []byte) rune {
	const sampleLines = 5
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	counts := make(map[rune]int, len(csvCandidateDelimiters))
	for i := 0; i < sampleLines && scanner.Scan(); i++ {
		line := scanner.Text()
		for _, d := range csvCandidateDelimiters {
			counts[d] += strings.Count(line, string(d))
		}
	}
	best := ','
	bestCount := 0
	for _, d := range csvCandidateDelimiters {
		if counts[d] > bestCount {
			best = d
			bestCount = counts[d]
		}
	}
	return best
}

// ParseCSV parses delimited text into headers and data rows. Limits are hard
// caps: input over MaxBytes or with more than MaxRows data rows is rejected
// outright, never truncated.
func ParseCSV(data []byte, opts CSVOptions) (*CSVDocument, error) {
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrCSVTooLarge, len(data))
	}

	// Strip a UTF-8 BOM so the first header cell is not polluted.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	delim := opts.Delimiter
	if delim == 0 {
		delim = DetectDelimiter(data)
	}

	reader := csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrCSVEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	if len(headers) < 2 {
		return nil, ErrCSVSingleColumn
	}

	doc := &CSVDocument{Headers: headers, Delimiter: delim}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(doc.Rows)+2, err)
		}
		if isBlankRecord(record) {
			continue
		}
		if opts.MaxRows > 0 && len(doc.Rows) >= opts.MaxRows {
			return nil, fmt.Errorf("%w: limit %d", ErrCSVTooManyRows, opts.MaxRows)
		}
		doc.Rows = append(doc.Rows, record)
	}
	return doc, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
