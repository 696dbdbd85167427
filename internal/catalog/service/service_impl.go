package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/shelfwise/internal/catalog/domain"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/validation"
	"github.com/smallbiznis/shelfwise/pkg/db"
	"github.com/smallbiznis/shelfwise/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	clock    clock.Clock
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    p.Clock,
		validate: validation.New(),
	}
}

func (s *Service) CreateBook(ctx context.Context, req domain.BookInput) (domain.Book, error) {
	req, err := s.normalize(req)
	if err != nil {
		return domain.Book{}, err
	}

	var book domain.Book
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBookByISBN(ctx, tx, req.ISBN)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateISBN
		}
		created, err := s.insert(ctx, tx, req)
		if err != nil {
			return err
		}
		book = created
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Book{}, domain.ErrDuplicateISBN
		}
		return domain.Book{}, err
	}

	s.log.Info("book created", zap.String("book_id", book.ID.String()))
	return book, nil
}

func (s *Service) UpsertByISBN(ctx context.Context, tx *gorm.DB, req domain.BookInput) (domain.UpsertResult, error) {
	req, err := s.normalize(req)
	if err != nil {
		return domain.UpsertResult{}, err
	}

	if tx == nil {
		var result domain.UpsertResult
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.upsert(ctx, tx, req)
			return err
		})
		return result, err
	}
	return s.upsert(ctx, tx, req)
}

func (s *Service) upsert(ctx context.Context, tx *gorm.DB, req domain.BookInput) (domain.UpsertResult, error) {
	existing, err := s.repo.FindBookByISBN(ctx, tx, req.ISBN)
	if err != nil {
		return domain.UpsertResult{}, err
	}
	if existing == nil {
		book, err := s.insert(ctx, tx, req)
		if err != nil {
			return domain.UpsertResult{}, err
		}
		return domain.UpsertResult{Book: book, Created: true}, nil
	}

	refs, err := s.resolveRefs(ctx, tx, req)
	if err != nil {
		return domain.UpsertResult{}, err
	}

	book := *existing
	applyInput(&book, req, refs)
	book.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateBook(ctx, tx, &book); err != nil {
		return domain.UpsertResult{}, err
	}
	if len(req.Authors) > 0 {
		if err := s.repo.ReplaceBookAuthors(ctx, tx, book.ID, authorIDs(refs.authors)); err != nil {
			return domain.UpsertResult{}, err
		}
		book.Authors = refs.authors
	}
	return domain.UpsertResult{Book: book}, nil
}

func (s *Service) insert(ctx context.Context, tx *gorm.DB, req domain.BookInput) (domain.Book, error) {
	refs, err := s.resolveRefs(ctx, tx, req)
	if err != nil {
		return domain.Book{}, err
	}

	now := s.clock.Now()
	book := domain.Book{
		ID:        s.genID.Generate(),
		ISBN:      req.ISBN,
		Stock:     req.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(&book, req, refs)

	if err := s.repo.InsertBook(ctx, tx, &book); err != nil {
		return domain.Book{}, err
	}
	if len(refs.authors) > 0 {
		if err := s.repo.ReplaceBookAuthors(ctx, tx, book.ID, authorIDs(refs.authors)); err != nil {
			return domain.Book{}, err
		}
	}
	book.Authors = refs.authors
	return book, nil
}

func (s *Service) GetBook(ctx context.Context, id string) (domain.Book, error) {
	bookID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || bookID == 0 {
		return domain.Book{}, domain.ErrInvalidID
	}

	book, err := s.repo.FindBookByID(ctx, s.db, bookID)
	if err != nil {
		return domain.Book{}, err
	}
	if book == nil {
		return domain.Book{}, domain.ErrNotFound
	}

	authors, err := s.repo.ListBookAuthors(ctx, s.db, []snowflake.ID{book.ID})
	if err != nil {
		return domain.Book{}, err
	}
	book.Authors = authors[book.ID]

	if book.PublisherID != nil {
		if book.Publisher, err = s.repo.FindPublisherByID(ctx, s.db, *book.PublisherID); err != nil {
			return domain.Book{}, err
		}
	}
	if book.GenreID != nil {
		if book.Genre, err = s.repo.FindGenreByID(ctx, s.db, *book.GenreID); err != nil {
			return domain.Book{}, err
		}
	}
	return *book, nil
}

func (s *Service) ListBooks(ctx context.Context, req domain.ListBooksRequest) (domain.ListBooksResponse, error) {
	var cursor *domain.BookCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListBooksResponse{}, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListBooksResponse{}, pagination.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(decoded.ID)
		if err != nil {
			return domain.ListBooksResponse{}, pagination.ErrInvalidPageToken
		}
		cursor = &domain.BookCursor{ID: id, CreatedAt: createdAt}
	}

	limit := req.Limit()
	items, err := s.repo.ListBooks(ctx, s.db, domain.ListBookFilter{
		Query:  req.Query,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		return domain.ListBooksResponse{}, err
	}

	page, pageInfo, err := pagination.BuildCursorPage(items, limit, func(b *domain.Book) pagination.Cursor {
		return pagination.Cursor{ID: b.ID.String(), CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano)}
	})
	if err != nil {
		return domain.ListBooksResponse{}, err
	}

	ids := make([]snowflake.ID, 0, len(page))
	for _, b := range page {
		ids = append(ids, b.ID)
	}
	authors, err := s.repo.ListBookAuthors(ctx, s.db, ids)
	if err != nil {
		return domain.ListBooksResponse{}, err
	}

	books := make([]domain.Book, 0, len(page))
	for _, b := range page {
		if b == nil {
			continue
		}
		b.Authors = authors[b.ID]
		books = append(books, *b)
	}
	return domain.ListBooksResponse{PageInfo: pageInfo, Books: books}, nil
}

func (s *Service) normalize(req domain.BookInput) (domain.BookInput, error) {
	req.ISBN = domain.NormalizeISBN(req.ISBN)
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	req.Publisher = strings.TrimSpace(req.Publisher)
	req.Genre = strings.TrimSpace(req.Genre)
	authors := make([]string, 0, len(req.Authors))
	for _, name := range req.Authors {
		authors = append(authors, strings.TrimSpace(name))
	}
	req.Authors = authors

	if err := s.validate.Struct(req); err != nil {
		return req, fieldError(err)
	}
	return req, nil
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].StructField() {
	case "ISBN":
		return domain.ErrInvalidISBN
	case "Title":
		return domain.ErrInvalidTitle
	case "Price":
		return domain.ErrInvalidPrice
	case "Stock":
		return domain.ErrInvalidStock
	case "PublishedYear":
		return domain.ErrInvalidPublishedYear
	case "Language":
		return domain.ErrInvalidLanguage
	case "Publisher":
		return domain.ErrInvalidPublisher
	case "Genre":
		return domain.ErrInvalidGenre
	default:
		return domain.ErrInvalidAuthor
	}
}

type refs struct {
	publisher *domain.Publisher
	genre     *domain.Genre
	authors   []domain.Author
}

func (s *Service) resolveRefs(ctx context.Context, tx *gorm.DB, req domain.BookInput) (refs, error) {
	var out refs
	var err error

	if req.Publisher != "" {
		out.publisher, err = findOrCreate(ctx, tx, req.Publisher, domain.ErrInvalidPublisher,
			s.repo.FindPublisherBySlug,
			func(name, slug string) *domain.Publisher {
				return &domain.Publisher{ID: s.genID.Generate(), Name: name, Slug: slug, CreatedAt: s.clock.Now()}
			},
			s.repo.InsertPublisher,
		)
		if err != nil {
			return refs{}, err
		}
	}
	if req.Genre != "" {
		out.genre, err = findOrCreate(ctx, tx, req.Genre, domain.ErrInvalidGenre,
			s.repo.FindGenreBySlug,
			func(name, slug string) *domain.Genre {
				return &domain.Genre{ID: s.genID.Generate(), Name: name, Slug: slug, CreatedAt: s.clock.Now()}
			},
			s.repo.InsertGenre,
		)
		if err != nil {
			return refs{}, err
		}
	}

	seen := make(map[snowflake.ID]struct{}, len(req.Authors))
	for _, name := range req.Authors {
		author, err := findOrCreate(ctx, tx, name, domain.ErrInvalidAuthor,
			s.repo.FindAuthorBySlug,
			func(name, slug string) *domain.Author {
				return &domain.Author{ID: s.genID.Generate(), Name: name, Slug: slug, CreatedAt: s.clock.Now()}
			},
			s.repo.InsertAuthor,
		)
		if err != nil {
			return refs{}, err
		}
		if _, dup := seen[author.ID]; dup {
			continue
		}
		seen[author.ID] = struct{}{}
		out.authors = append(out.authors, *author)
	}
	return out, nil
}

// findOrCreate looks a named entity up by slug, inserting it when absent.
func findOrCreate[T any](
	ctx context.Context,
	tx *gorm.DB,
	name string,
	invalid error,
	find func(context.Context, *gorm.DB, string) (*T, error),
	build func(name, slug string) *T,
	insert func(context.Context, *gorm.DB, *T) error,
) (*T, error) {
	key := slug.Make(name)
	if key == "" {
		return nil, invalid
	}
	existing, err := find(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	entity := build(name, key)
	if err := insert(ctx, tx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func applyInput(book *domain.Book, req domain.BookInput, r refs) {
	book.Title = req.Title
	book.Description = req.Description
	book.Price = req.Price
	book.PublishedYear = req.PublishedYear
	book.Language = req.Language
	if r.publisher != nil {
		book.PublisherID = &r.publisher.ID
		book.Publisher = r.publisher
	}
	if r.genre != nil {
		book.GenreID = &r.genre.ID
		book.Genre = r.genre
	}
}

func authorIDs(authors []domain.Author) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}
	return ids
}
