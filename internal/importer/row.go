package importer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var (
	ErrUnknownFormat = errors.New("unknown_import_format")
	ErrMissingHeader = errors.New("csv_header_missing")
)

type NamedRef struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Row is one book as it appears in an import file. Price is in dollars.
type Row struct {
	ISBN          string          `json:"isbn" validate:"required"`
	Title         string          `json:"title" validate:"required,max=255"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock" validate:"gte=0"`
	Description   string          `json:"description"`
	PublishedYear *int            `json:"published_year" validate:"omitempty,gte=1000,lte=9999"`
	Language      string          `json:"language" validate:"omitempty,max=16"`
	Publisher     *NamedRef       `json:"publisher" validate:"omitempty"`
	Genre         *NamedRef       `json:"genre" validate:"omitempty"`
	Authors       []NamedRef      `json:"authors" validate:"dive"`
}

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", ErrUnknownFormat
	}
}

// FormatFromFilename picks the format from the file extension.
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
}

// decoded is a row plus any error met while decoding it. Row numbers are
// 1-based and count data records only.
type decoded struct {
	Number int
	Row    Row
	Err    *RowError
}

func decodeJSON(r io.Reader) ([]decoded, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	out := make([]decoded, 0, len(raw))
	for i, msg := range raw {
		d := decoded{Number: i + 1}
		if err := json.Unmarshal(msg, &d.Row); err != nil {
			d.Err = &RowError{Row: d.Number, Message: err.Error()}
		}
		out = append(out, d)
	}
	return out, nil
}

var csvColumns = []string{"isbn", "title", "price", "stock", "description", "published_year", "language", "publisher", "genre", "authors"}

func decodeCSV(r io.Reader) ([]decoded, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"isbn", "title"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: column %q", ErrMissingHeader, required)
		}
	}

	var out []decoded
	for n := 1; ; n++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				out = append(out, decoded{Number: n, Err: &RowError{Row: n, Message: perr.Err.Error()}})
				continue
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		out = append(out, csvRow(n, record, index))
	}
	return out, nil
}

func csvRow(n int, record []string, index map[string]int) decoded {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	fail := func(field, msg string) decoded {
		return decoded{Number: n, Err: &RowError{Row: n, Field: field, Message: msg}}
	}

	row := Row{
		ISBN:        get("isbn"),
		Title:       get("title"),
		Description: get("description"),
		Language:    get("language"),
	}
	if v := get("price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return fail("price", "is not a number")
		}
		row.Price = price
	}
	if v := get("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return fail("stock", "is not an integer")
		}
		row.Stock = stock
	}
	if v := get("published_year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return fail("published_year", "is not an integer")
		}
		row.PublishedYear = &year
	}
	if v := get("publisher"); v != "" {
		row.Publisher = &NamedRef{Name: v}
	}
	if v := get("genre"); v != "" {
		row.Genre = &NamedRef{Name: v}
	}
	for _, name := range strings.Split(get("authors"), ";") {
		if name = strings.TrimSpace(name); name != "" {
			row.Authors = append(row.Authors, NamedRef{Name: name})
		}
	}
	return decoded{Number: n, Row: row}
}
