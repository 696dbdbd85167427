// Package importer loads books in bulk from CSV or JSON files.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	catalogdomain "github.com/smallbiznis/shelfwise/internal/catalog/domain"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/events"
	stockdomain "github.com/smallbiznis/shelfwise/internal/stock/domain"
	"github.com/smallbiznis/shelfwise/internal/validation"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrMissingReader = errors.New("import_source_missing")

// errDryRun rolls the import transaction back after counting.
var errDryRun = errors.New("dry run")

type Request struct {
	Format Format
	Reader io.Reader
	DryRun bool
}

type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type Report struct {
	RunID   string `json:"run_id"`
	Total   int    `json:"total"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	// Corrected counts updated books whose stock was reset by a correction.
	Corrected int        `json:"stock_corrected"`
	Errors    []RowError `json:"errors"`
	DryRun    bool       `json:"dry_run"`
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Catalog catalogdomain.Service
	Stock   stockdomain.Service
	Clock   clock.Clock
}

type Importer struct {
	db       *gorm.DB
	log      *zap.Logger
	catalog  catalogdomain.Service
	stock    stockdomain.Service
	clock    clock.Clock
	validate *validator.Validate
}

func New(p Params) *Importer {
	return &Importer{
		db:       p.DB,
		log:      p.Log.Named("importer"),
		catalog:  p.Catalog,
		stock:    p.Stock,
		clock:    p.Clock,
		validate: validation.New(),
	}
}

// Import upserts every valid row by ISBN inside a single transaction.
// Invalid rows are reported and skipped; any other failure rolls the whole
// file back.
func (im *Importer) Import(ctx context.Context, req Request) (Report, []events.Event, error) {
	report := Report{RunID: ulid.Make().String(), DryRun: req.DryRun, Errors: []RowError{}}
	if req.Reader == nil {
		return report, nil, ErrMissingReader
	}

	var (
		rows []decoded
		err  error
	)
	switch req.Format {
	case FormatCSV:
		rows, err = decodeCSV(req.Reader)
	case FormatJSON:
		rows, err = decodeJSON(req.Reader)
	default:
		return report, nil, ErrUnknownFormat
	}
	if err != nil {
		return report, nil, err
	}
	report.Total = len(rows)

	log := im.log.With(zap.String("run_id", report.RunID), zap.Bool("dry_run", req.DryRun))

	var stockEvts []events.Event

	err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if rowErr := im.check(d); rowErr != nil {
				report.Skipped++
				report.Errors = append(report.Errors, rowErrors(d.Number, rowErr)...)
				continue
			}

			result, err := im.catalog.UpsertByISBN(ctx, tx, toInput(d.Row))
			if err != nil {
				if field, ok := catalogField(err); ok {
					report.Skipped++
					report.Errors = append(report.Errors, RowError{Row: d.Number, Field: field, Message: err.Error()})
					continue
				}
				return err
			}
			if result.Created {
				report.Created++
				continue
			}
			report.Updated++
			if result.Book.Stock == d.Row.Stock {
				continue
			}
			_, evts, err := im.stock.AdjustInTx(ctx, tx, stockdomain.AdjustRequest{
				Type:   string(stockdomain.AdjustmentCorrection),
				Reason: fmt.Sprintf("import %s row %d", report.RunID, d.Number),
				Items:  []stockdomain.AdjustItem{{BookID: result.Book.ID.String(), Quantity: d.Row.Stock}},
			})
			if err != nil {
				return err
			}
			report.Corrected++
			stockEvts = append(stockEvts, evts...)
		}
		if req.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		log.Error("import failed", zap.Error(err))
		return report, nil, err
	}

	log.Info("import finished",
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("stock_corrected", report.Corrected),
	)
	if req.DryRun {
		return report, nil, nil
	}
	evt := events.New(events.BooksImported, im.clock.Now(), "import_run", report.RunID, map[string]any{
		events.AttrCreated: report.Created,
		events.AttrUpdated: report.Updated,
		events.AttrSkipped: report.Skipped,
	})
	return report, append([]events.Event{evt}, stockEvts...), nil
}

func (im *Importer) check(d decoded) error {
	if d.Err != nil {
		return d.Err
	}
	if d.Row.Price.IsNegative() {
		return &RowError{Row: d.Number, Field: "price", Message: "must be at least 0"}
	}
	return im.validate.Struct(d.Row)
}

func (e *RowError) Error() string { return e.Message }

func rowErrors(n int, err error) []RowError {
	var rowErr *RowError
	if errors.As(err, &rowErr) {
		return []RowError{*rowErr}
	}
	fields := validation.Fields(err)
	out := make([]RowError, 0, len(fields))
	for _, f := range fields {
		out = append(out, RowError{Row: n, Field: f.Field, Message: f.Message})
	}
	return out
}

func toInput(row Row) catalogdomain.BookInput {
	in := catalogdomain.BookInput{
		ISBN:          row.ISBN,
		Title:         row.Title,
		Description:   row.Description,
		Price:         money.FromDecimal(row.Price),
		Stock:         row.Stock,
		PublishedYear: row.PublishedYear,
		Language:      row.Language,
	}
	if row.Publisher != nil {
		in.Publisher = row.Publisher.Name
	}
	if row.Genre != nil {
		in.Genre = row.Genre.Name
	}
	for _, a := range row.Authors {
		in.Authors = append(in.Authors, strings.TrimSpace(a.Name))
	}
	return in
}

var catalogFields = map[error]string{
	catalogdomain.ErrInvalidISBN:          "isbn",
	catalogdomain.ErrInvalidTitle:         "title",
	catalogdomain.ErrInvalidPrice:         "price",
	catalogdomain.ErrInvalidStock:         "stock",
	catalogdomain.ErrInvalidPublishedYear: "published_year",
	catalogdomain.ErrInvalidLanguage:      "language",
	catalogdomain.ErrInvalidPublisher:     "publisher",
	catalogdomain.ErrInvalidGenre:         "genre",
	catalogdomain.ErrInvalidAuthor:        "authors",
}

func catalogField(err error) (string, bool) {
	for sentinel, field := range catalogFields {
		if errors.Is(err, sentinel) {
			return field, true
		}
	}
	return "", false
}
