package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/pkg/money"
)

type Book struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	ISBN          string        `gorm:"column:isbn;type:varchar(13);not null;uniqueIndex" json:"isbn"`
	Title         string        `gorm:"type:varchar(255);not null" json:"title"`
	Description   string        `gorm:"type:text" json:"description,omitempty"`
	Price         money.Amount  `gorm:"column:price_cents;not null;default:0" json:"price"`
	Stock         int           `gorm:"not null;default:0" json:"stock"`
	Version       int64         `gorm:"not null;default:0" json:"version"`
	PublisherID   *snowflake.ID `gorm:"index" json:"publisher_id,omitempty"`
	GenreID       *snowflake.ID `gorm:"index" json:"genre_id,omitempty"`
	PublishedYear *int          `json:"published_year,omitempty"`
	Language      string        `gorm:"type:varchar(16)" json:"language,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`

	Publisher *Publisher `gorm:"-" json:"publisher,omitempty"`
	Genre     *Genre     `gorm:"-" json:"genre,omitempty"`
	Authors   []Author   `gorm:"-" json:"authors,omitempty"`
}

func (Book) TableName() string { return "books" }

type Author struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string       `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Author) TableName() string { return "authors" }

type Publisher struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string       `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Publisher) TableName() string { return "publishers" }

type Genre struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string       `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Genre) TableName() string { return "genres" }

type BookAuthor struct {
	BookID   snowflake.ID `gorm:"primaryKey"`
	AuthorID snowflake.ID `gorm:"primaryKey"`
	Position int          `gorm:"not null;default:0"`
}

func (BookAuthor) TableName() string { return "book_authors" }

// Models lists the catalog tables for AutoMigrate.
func Models() []any {
	return []any{&Book{}, &Author{}, &Publisher{}, &Genre{}, &BookAuthor{}}
}
