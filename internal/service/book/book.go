package book

import (
	"context"

	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/repository"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// Page of books together with the pagination envelope the API exposes
type Page struct {
	Books       []models.Book
	CurrentPage int
	TotalItems  int64
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

type BookService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *BookService {
	return &BookService{storage: storage}
}

func (s *BookService) Create(ctx context.Context, book models.Book) (models.Book, error) {
	return s.storage.Book().CreateBook(ctx, book)
}

// Get returns the book and counts the view. The counter is best effort,
// a failed bump must not fail the read.
func (s *BookService) Get(ctx context.Context, bookID uuid.UUID) (models.Book, error) {
	book, err := s.storage.Book().GetBook(ctx, bookID)
	if err != nil {
		return book, err
	}

	_ = s.storage.Book().IncrementViewCount(ctx, bookID)
	return book, nil
}

func (s *BookService) Update(ctx context.Context, book models.Book) (models.Book, error) {
	return s.storage.Book().UpdateBook(ctx, book)
}

func (s *BookService) Delete(ctx context.Context, bookID uuid.UUID) error {
	return s.storage.Book().DeleteBook(ctx, bookID)
}

func (s *BookService) List(ctx context.Context, params repository.ListParams) (Page, error) {
	params = clampParams(params)
	books, total, err := s.storage.Book().ListBooks(ctx, params)
	if err != nil {
		return Page{}, err
	}
	return buildPage(books, total, params), nil
}

func (s *BookService) Search(ctx context.Context, filter repository.BookFilter, params repository.ListParams) (Page, error) {
	params = clampParams(params)
	books, total, err := s.storage.Book().SearchBooks(ctx, filter, params)
	if err != nil {
		return Page{}, err
	}
	return buildPage(books, total, params), nil
}

func (s *BookService) TopRated(ctx context.Context, limit int) ([]models.Book, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = 10
	}
	return s.storage.Book().TopRated(ctx, limit)
}

func (s *BookService) Genres(ctx context.Context) ([]string, error) {
	return s.storage.Book().Genres(ctx)
}

func clampParams(p repository.ListParams) repository.ListParams {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 || p.Size > maxPageSize {
		p.Size = defaultPageSize
	}
	return p
}

func buildPage(books []models.Book, total int64, params repository.ListParams) Page {
	totalPages := int((total + int64(params.Size) - 1) / int64(params.Size))

	return Page{
		Books:       books,
		CurrentPage: params.Page,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     params.Page+1 < totalPages,
		HasPrevious: params.Page > 0 && params.Page <= totalPages,
	}
}
