package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nerrad567/csv2influx/internal/mapper"
)

// Source yields input rows in file order.
type Source interface {
	// Next returns the next data row and the input line it starts on.
	// It returns io.EOF after the last row.
	Next() (mapper.Row, int, error)
	Close() error
}

// SourceConfig describes a delimited input file.
type SourceConfig struct {
	Path string

	// Delimiter separates cells. Zero means ','.
	Delimiter rune

	// Encoding is a WHATWG label such as "utf-8", "latin1" or "windows-1252".
	// Empty means utf-8. A leading byte order mark is always honoured.
	Encoding string
}

// CSVSource reads a header row followed by data rows.
//
// Files ending in ".gz" are decompressed transparently. Rows may be shorter
// or longer than the header: missing trailing cells are absent from the
// Row, extra cells are ignored.
type CSVSource struct {
	file   *os.File
	gz     *gzip.Reader
	reader *csv.Reader
	header []string
	closed bool
}

// OpenCSV opens cfg.Path and reads its header row.
//
// An empty file is not an error; its source yields io.EOF immediately.
func OpenCSV(cfg SourceConfig) (*CSVSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: input path is required", ErrInvalidSource)
	}

	delim := cfg.Delimiter
	if delim == 0 {
		delim = ','
	}
	if !validDelimiter(delim) {
		return nil, fmt.Errorf("%w: delimiter %q is not usable", ErrInvalidSource, delim)
	}

	label := cfg.Encoding
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %q: %w", ErrInvalidSource, label, err)
	}

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}

	s := &CSVSource{file: f}

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(cfg.Path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, cfg.Path, err)
		}
		s.gz = gz
		r = gz
	}

	r = transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))

	s.reader = csv.NewReader(r)
	s.reader.Comma = delim
	s.reader.FieldsPerRecord = -1
	s.reader.ReuseRecord = true

	header, err := s.reader.Read()
	switch {
	case errors.Is(err, io.EOF):
		// empty input
	case err != nil:
		s.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: header: %w", ErrInput, err)
	default:
		s.header = append([]string(nil), header...)
	}

	return s, nil
}

// Header returns the column names from the first line.
func (s *CSVSource) Header() []string {
	return append([]string(nil), s.header...)
}

// Next implements Source.
func (s *CSVSource) Next() (mapper.Row, int, error) {
	if s.closed || s.header == nil {
		return nil, 0, io.EOF
	}

	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, io.EOF
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInput, err)
	}
	line, _ := s.reader.FieldPos(0)

	row := make(mapper.Row, len(s.header))
	for i, name := range s.header {
		if i >= len(record) {
			break
		}
		row[name] = record[i]
	}
	return row, line, nil
}

// Close releases the file. It is safe to call more than once.
func (s *CSVSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var gzErr error
	if s.gz != nil {
		gzErr = s.gz.Close()
	}
	return errors.Join(gzErr, s.file.Close())
}

func validDelimiter(r rune) bool {
	return r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// ParseDelimiter converts a configured delimiter to a rune.
// The escape sequence "\t" and the word "tab" select a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || !validDelimiter(r) {
		return 0, fmt.Errorf("%w: delimiter must be a single character, got %q", ErrInvalidSource, s)
	}
	return r, nil
}
