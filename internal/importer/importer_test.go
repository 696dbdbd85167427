package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/shelfwise/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/shelfwise/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/shelfwise/internal/catalog/service"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/events"
	stockdomain "github.com/smallbiznis/shelfwise/internal/stock/domain"
	stockrepository "github.com/smallbiznis/shelfwise/internal/stock/repository"
	stockservice "github.com/smallbiznis/shelfwise/internal/stock/service"
	"github.com/smallbiznis/shelfwise/pkg/db/dbtest"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestImporter(t *testing.T) (*Importer, catalogdomain.Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, append(catalogdomain.Models(), stockdomain.Models()...)...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	catalog := catalogservice.New(catalogservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: catalogrepository.Provide(), Clock: fc})
	stock := stockservice.New(stockservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: stockrepository.Provide(), Clock: fc})
	im := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Catalog: catalog,
		Stock:   stock,
		Clock:   fc,
	})
	return im, catalog, db
}

const catalogCSV = `isbn,title,price,stock,description,published_year,language,publisher,genre,authors
978-0-14-044913-6,The Odyssey,15.99,4,Epic,1997,en,Penguin Classics,Epic Poetry,Homer; Robert Fagles
123,Broken ISBN,9.99,1,,,,,,
9780141439518,Pride and Prejudice,7.50,-2,,,,,,Jane Austen
9780441172719,Dune,9.99,3,,1990,en,Ace,Science Fiction,Frank Herbert
9780140449136,The Odyssey,17.25,6,Epic,1997,en,Penguin Classics,Epic Poetry,Homer
`

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

func countBooks(t *testing.T, db *gorm.DB) int64 {
	return countRows(t, db, "books")
}

func TestImportCSVUpsertsAndSkipsInvalidRows(t *testing.T) {
	im, catalog, db := newTestImporter(t)
	ctx := context.Background()

	report, evts, err := im.Import(ctx, Request{Format: FormatCSV, Reader: strings.NewReader(catalogCSV)})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, RowError{Row: 2, Field: "isbn", Message: catalogdomain.ErrInvalidISBN.Error()}, report.Errors[0])
	assert.Equal(t, 3, report.Errors[1].Row)
	assert.Equal(t, "stock", report.Errors[1].Field)

	assert.Equal(t, int64(2), countBooks(t, db))
	page, err := catalog.ListBooks(ctx, catalogdomain.ListBooksRequest{Query: "odyssey"})
	require.NoError(t, err)
	require.Len(t, page.Books, 1)
	assert.Equal(t, money.Cents(1725), page.Books[0].Price)
	assert.Equal(t, 6, page.Books[0].Stock)

	assert.Equal(t, 1, report.Corrected)
	var corrections []stockdomain.StockTransaction
	require.NoError(t, db.Find(&corrections).Error)
	require.Len(t, corrections, 1)
	assert.Equal(t, stockdomain.AdjustmentCorrection, corrections[0].Type)
	assert.Contains(t, corrections[0].Reason, report.RunID)

	require.Len(t, evts, 2)
	assert.Equal(t, events.BooksImported, evts[0].Type)
	assert.Equal(t, report.RunID, evts[0].TargetID)
	assert.Equal(t, int64(2), evts[0].Int64(events.AttrCreated))
	assert.Equal(t, events.StockAdjusted, evts[1].Type)
	assert.Equal(t, int64(4), evts[1].Int64(events.AttrOldStock))
	assert.Equal(t, int64(6), evts[1].Int64(events.AttrNewStock))
}

func TestImportDryRunRollsBack(t *testing.T) {
	im, _, db := newTestImporter(t)

	report, evts, err := im.Import(context.Background(), Request{
		Format: FormatCSV,
		Reader: strings.NewReader(catalogCSV),
		DryRun: true,
	})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Empty(t, evts)
	assert.Zero(t, countBooks(t, db))
	assert.Zero(t, countRows(t, db, "stock_transactions"))
}

func TestReimportWithSameStockSkipsCorrection(t *testing.T) {
	im, _, db := newTestImporter(t)
	ctx := context.Background()
	file := "isbn,title,price,stock\n9780441172719,Dune,9.99,3\n"

	_, _, err := im.Import(ctx, Request{Format: FormatCSV, Reader: strings.NewReader(file)})
	require.NoError(t, err)
	report, evts, err := im.Import(ctx, Request{Format: FormatCSV, Reader: strings.NewReader(file)})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Corrected)
	assert.Len(t, evts, 1)
	assert.Zero(t, countRows(t, db, "stock_transactions"))
}

func TestImportJSON(t *testing.T) {
	im, _, db := newTestImporter(t)

	body := `[
	  {"isbn": "9780441172719", "title": "Dune", "price": 9.99, "stock": 3,
	   "publisher": {"name": "Ace"}, "genre": {"name": "Science Fiction"},
	   "authors": [{"name": "Frank Herbert"}]},
	  {"isbn": "9780141439518", "title": "", "price": 7.5},
	  {"isbn": "9780140449136", "title": "The Odyssey", "price": -1},
	  {"isbn": 42}
	]`
	report, _, err := im.Import(context.Background(), Request{Format: FormatJSON, Reader: strings.NewReader(body)})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 3, report.Skipped)
	require.Len(t, report.Errors, 3)
	assert.Equal(t, RowError{Row: 2, Field: "title", Message: "is required"}, report.Errors[0])
	assert.Equal(t, "price", report.Errors[1].Field)
	assert.Equal(t, 4, report.Errors[2].Row)
	assert.Equal(t, int64(1), countBooks(t, db))
}

func TestImportRejectsBadInput(t *testing.T) {
	im, _, _ := newTestImporter(t)
	ctx := context.Background()

	_, _, err := im.Import(ctx, Request{Format: FormatCSV})
	assert.ErrorIs(t, err, ErrMissingReader)

	_, _, err = im.Import(ctx, Request{Format: "xml", Reader: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, _, err = im.Import(ctx, Request{Format: FormatCSV, Reader: strings.NewReader("title,price\nDune,1\n")})
	assert.ErrorIs(t, err, ErrMissingHeader)

	_, _, err = im.Import(ctx, Request{Format: FormatJSON, Reader: strings.NewReader("{")})
	assert.Error(t, err)
}

func TestFormatFromFilename(t *testing.T) {
	f, err := FormatFromFilename("books.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = FormatFromFilename("/tmp/books.json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = FormatFromFilename("books.xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
