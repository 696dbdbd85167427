package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/shelfwise/pkg/db/pagination"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"gorm.io/gorm"
)

// BookInput is the shape shared by the create endpoint and the bulk importer.
type BookInput struct {
	ISBN          string       `json:"isbn" validate:"required,isbn"`
	Title         string       `json:"title" validate:"required,max=255"`
	Description   string       `json:"description"`
	Price         money.Amount `json:"price" validate:"gte=0"`
	Stock         int          `json:"stock" validate:"gte=0"`
	PublishedYear *int         `json:"published_year" validate:"omitempty,gte=1000,lte=9999"`
	Language      string       `json:"language" validate:"omitempty,max=16"`
	Publisher     string       `json:"publisher" validate:"omitempty,max=255"`
	Genre         string       `json:"genre" validate:"omitempty,max=255"`
	Authors       []string     `json:"authors" validate:"dive,required,max=255"`
}

type UpsertResult struct {
	Book    Book `json:"book"`
	Created bool `json:"created"`
}

type ListBooksRequest struct {
	pagination.Pagination
	Query string `form:"q"`
}

type ListBooksResponse struct {
	pagination.PageInfo
	Books []Book `json:"books"`
}

type Service interface {
	CreateBook(ctx context.Context, req BookInput) (Book, error)
	GetBook(ctx context.Context, id string) (Book, error)
	ListBooks(ctx context.Context, req ListBooksRequest) (ListBooksResponse, error)
	// UpsertByISBN runs inside tx when given so a caller can batch many rows
	// into one transaction. Stock is only set when the book is created;
	// existing stock changes go through the stock service.
	UpsertByISBN(ctx context.Context, tx *gorm.DB, req BookInput) (UpsertResult, error)
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidISBN          = errors.New("invalid_isbn")
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidStock         = errors.New("invalid_stock")
	ErrInvalidPublishedYear = errors.New("invalid_published_year")
	ErrInvalidLanguage      = errors.New("invalid_language")
	ErrInvalidPublisher     = errors.New("invalid_publisher")
	ErrInvalidGenre         = errors.New("invalid_genre")
	ErrInvalidAuthor        = errors.New("invalid_author")
	ErrDuplicateISBN        = errors.New("duplicate_isbn")
	ErrNotFound             = errors.New("book_not_found")
)
