package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type BookCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListBookFilter struct {
	Query  string
	Cursor *BookCursor
	Limit  int
}

type Repository interface {
	InsertBook(ctx context.Context, db *gorm.DB, book *Book) error
	UpdateBook(ctx context.Context, db *gorm.DB, book *Book) error
	FindBookByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Book, error)
	FindBookByISBN(ctx context.Context, db *gorm.DB, isbn string) (*Book, error)
	FindBooksByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Book, error)
	ListBooks(ctx context.Context, db *gorm.DB, filter ListBookFilter) ([]*Book, error)

	FindAuthorBySlug(ctx context.Context, db *gorm.DB, slug string) (*Author, error)
	InsertAuthor(ctx context.Context, db *gorm.DB, author *Author) error
	FindPublisherBySlug(ctx context.Context, db *gorm.DB, slug string) (*Publisher, error)
	FindPublisherByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Publisher, error)
	InsertPublisher(ctx context.Context, db *gorm.DB, publisher *Publisher) error
	FindGenreBySlug(ctx context.Context, db *gorm.DB, slug string) (*Genre, error)
	FindGenreByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Genre, error)
	InsertGenre(ctx context.Context, db *gorm.DB, genre *Genre) error

	ReplaceBookAuthors(ctx context.Context, db *gorm.DB, bookID snowflake.ID, authorIDs []snowflake.ID) error
	ListBookAuthors(ctx context.Context, db *gorm.DB, bookIDs []snowflake.ID) (map[snowflake.ID][]Author, error)
}
