package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const bookColumns = `id, isbn, title, description, price_cents, stock, version, publisher_id, genre_id,
	published_year, language, created_at, updated_at`

func (r *repo) InsertBook(ctx context.Context, db *gorm.DB, book *domain.Book) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO books (`+bookColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		book.ISBN,
		book.Title,
		book.Description,
		book.Price,
		book.Stock,
		book.Version,
		book.PublisherID,
		book.GenreID,
		book.PublishedYear,
		book.Language,
		book.CreatedAt,
		book.UpdatedAt,
	).Error
}

// UpdateBook overwrites the descriptive fields and stock and bumps the
// version so in-flight stock adjustments retry against the new row.
func (r *repo) UpdateBook(ctx context.Context, db *gorm.DB, book *domain.Book) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE books SET title = ?, description = ?, price_cents = ?, version = version + 1,
			publisher_id = ?, genre_id = ?, published_year = ?, language = ?, updated_at = ?
		 WHERE id = ?`,
		book.Title,
		book.Description,
		book.Price,
		book.PublisherID,
		book.GenreID,
		book.PublishedYear,
		book.Language,
		book.UpdatedAt,
		book.ID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	book.Version++
	return nil
}

func (r *repo) FindBookByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Book, error) {
	var book domain.Book
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookColumns+` FROM books WHERE id = ?`,
		id,
	).Scan(&book).Error
	if err != nil {
		return nil, err
	}
	if book.ID == 0 {
		return nil, nil
	}
	return &book, nil
}

func (r *repo) FindBookByISBN(ctx context.Context, db *gorm.DB, isbn string) (*domain.Book, error) {
	var book domain.Book
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookColumns+` FROM books WHERE isbn = ?`,
		isbn,
	).Scan(&book).Error
	if err != nil {
		return nil, err
	}
	if book.ID == 0 {
		return nil, nil
	}
	return &book, nil
}

func (r *repo) FindBooksByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var books []*domain.Book
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookColumns+` FROM books WHERE id IN ? ORDER BY id`,
		ids,
	).Scan(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repo) ListBooks(ctx context.Context, db *gorm.DB, filter domain.ListBookFilter) ([]*domain.Book, error) {
	var books []*domain.Book
	stmt := db.WithContext(ctx).Model(&domain.Book{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		stmt = stmt.Where("LOWER(title) LIKE ? OR isbn = ?", like, domain.NormalizeISBN(q))
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repo) FindAuthorBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Author, error) {
	return findNamed[domain.Author](ctx, db, "authors", "slug", slug)
}

func (r *repo) InsertAuthor(ctx context.Context, db *gorm.DB, author *domain.Author) error {
	return insertNamed(ctx, db, "authors", author.ID, author.Name, author.Slug, author.CreatedAt)
}

func (r *repo) FindPublisherBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Publisher, error) {
	return findNamed[domain.Publisher](ctx, db, "publishers", "slug", slug)
}

func (r *repo) FindPublisherByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Publisher, error) {
	return findNamed[domain.Publisher](ctx, db, "publishers", "id", id)
}

func (r *repo) InsertPublisher(ctx context.Context, db *gorm.DB, publisher *domain.Publisher) error {
	return insertNamed(ctx, db, "publishers", publisher.ID, publisher.Name, publisher.Slug, publisher.CreatedAt)
}

func (r *repo) FindGenreBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Genre, error) {
	return findNamed[domain.Genre](ctx, db, "genres", "slug", slug)
}

func (r *repo) FindGenreByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Genre, error) {
	return findNamed[domain.Genre](ctx, db, "genres", "id", id)
}

func (r *repo) InsertGenre(ctx context.Context, db *gorm.DB, genre *domain.Genre) error {
	return insertNamed(ctx, db, "genres", genre.ID, genre.Name, genre.Slug, genre.CreatedAt)
}

func (r *repo) ReplaceBookAuthors(ctx context.Context, db *gorm.DB, bookID snowflake.ID, authorIDs []snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM book_authors WHERE book_id = ?`, bookID).Error; err != nil {
		return err
	}
	for i, authorID := range authorIDs {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO book_authors (book_id, author_id, position) VALUES (?, ?, ?)`,
			bookID,
			authorID,
			i,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ListBookAuthors(ctx context.Context, db *gorm.DB, bookIDs []snowflake.ID) (map[snowflake.ID][]domain.Author, error) {
	out := make(map[snowflake.ID][]domain.Author, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}

	type row struct {
		BookID snowflake.ID
		domain.Author
	}
	var rows []row
	err := db.WithContext(ctx).Raw(
		`SELECT ba.book_id, a.id, a.name, a.slug, a.created_at
		 FROM book_authors ba JOIN authors a ON a.id = ba.author_id
		 WHERE ba.book_id IN ?
		 ORDER BY ba.book_id, ba.position`,
		bookIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.BookID] = append(out[row.BookID], row.Author)
	}
	return out, nil
}

type named interface {
	domain.Author | domain.Publisher | domain.Genre
}

func findNamed[T named](ctx context.Context, db *gorm.DB, table, column string, value any) (*T, error) {
	var rows []T
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, created_at FROM `+table+` WHERE `+column+` = ? LIMIT 1`,
		value,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func insertNamed(ctx context.Context, db *gorm.DB, table string, id snowflake.ID, name, slug string, createdAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO `+table+` (id, name, slug, created_at) VALUES (?, ?, ?, ?)`,
		id,
		name,
		slug,
		createdAt,
	).Error
}
