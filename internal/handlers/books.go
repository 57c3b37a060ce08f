package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/handlers/render"
	"github.com/ivmartynov/bookverse/internal/logger"
	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/repository"
	"github.com/ivmartynov/bookverse/internal/service/book"
)

type bookService interface {
	Create(ctx context.Context, book models.Book) (models.Book, error)
	Get(ctx context.Context, bookID uuid.UUID) (models.Book, error)
	Update(ctx context.Context, book models.Book) (models.Book, error)
	Delete(ctx context.Context, bookID uuid.UUID) error
	List(ctx context.Context, params repository.ListParams) (book.Page, error)
	Search(ctx context.Context, filter repository.BookFilter, params repository.ListParams) (book.Page, error)
	TopRated(ctx context.Context, limit int) ([]models.Book, error)
	Genres(ctx context.Context) ([]string, error)
}

type BookResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Genre         string    `json:"genre"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"imageUrl"`
	AverageRating float64   `json:"averageRating"`
	ViewCount     int64     `json:"viewCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toBookResponse(b models.Book) BookResponse {
	return BookResponse{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		Genre:         b.Genre,
		Description:   b.Description,
		ImageURL:      b.ImageURL,
		AverageRating: b.AverageRating.InexactFloat64(),
		ViewCount:     b.ViewCount,
		CreatedAt:     b.CreatedAt,
	}
}

func toBookResponses(books []models.Book) []BookResponse {
	out := make([]BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	return out
}

type bookPageResponse struct {
	Books       []BookResponse `json:"books"`
	CurrentPage int            `json:"currentPage"`
	TotalItems  int64          `json:"totalItems"`
	TotalPages  int            `json:"totalPages"`
	HasNext     bool           `json:"hasNext"`
	HasPrevious bool           `json:"hasPrevious"`
}

func toBookPageResponse(p book.Page) bookPageResponse {
	return bookPageResponse{
		Books:       toBookResponses(p.Books),
		CurrentPage: p.CurrentPage,
		TotalItems:  p.TotalItems,
		TotalPages:  p.TotalPages,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
	}
}

type bookRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Author      string `json:"author" validate:"required,max=255"`
	Genre       string `json:"genre" validate:"max=100"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,max=2048"`
}

type BookHandler struct {
	bookService bookService
	logger      logger.Logger
}

func NewBooks(bs bookService, l logger.Logger) *BookHandler {
	return &BookHandler{bookService: bs, logger: l}
}

// listParamsFromQuery reads page, size, sortBy and sortDir. Unknown or
// malformed values fall back to the defaults instead of erroring, the
// listing endpoints should be hard to misuse.
func listParamsFromQuery(r *http.Request) repository.ListParams {
	q := r.URL.Query()

	params := repository.ListParams{
		SortBy:  q.Get("sortBy"),
		SortDir: q.Get("sortDir"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(q.Get("size")); err == nil {
		params.Size = size
	}
	return params
}

func bookIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func (h *BookHandler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.bookService.List(r.Context(), listParamsFromQuery(r))
	if err != nil {
		h.logger.Error("book listing failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toBookPageResponse(page))
}

func (h *BookHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.BookFilter{
		Query:  q.Get("query"),
		Title:  q.Get("title"),
		Author: q.Get("author"),
		Genre:  q.Get("genre"),
	}

	page, err := h.bookService.Search(r.Context(), filter, listParamsFromQuery(r))
	if err != nil {
		h.logger.Error("book search failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toBookPageResponse(page))
}

func (h *BookHandler) topRated(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	books, err := h.bookService.TopRated(r.Context(), limit)
	if err != nil {
		h.logger.Error("top rated listing failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toBookResponses(books))
}

func (h *BookHandler) genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.bookService.Genres(r.Context())
	if err != nil {
		h.logger.Error("genre listing failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, genres)
}

func (h *BookHandler) get(w http.ResponseWriter, r *http.Request) {
	bookID, err := bookIDFromPath(r)
	if err != nil {
		render.ServiceError(w, "Invalid book id", http.StatusBadRequest)
		return
	}

	b, err := h.bookService.Get(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, apperrors.ErrBookNotFound) {
			render.ServiceError(w, "Book not found", http.StatusNotFound)
			return
		}
		h.logger.Error("book lookup failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toBookResponse(b))
}

func (h *BookHandler) create(w http.ResponseWriter, r *http.Request) {
	data, err := render.BindAndValidate[bookRequest](w, r)
	if err != nil {
		return
	}

	b, err := h.bookService.Create(r.Context(), models.Book{
		Title:       data.Title,
		Author:      data.Author,
		Genre:       data.Genre,
		Description: data.Description,
		ImageURL:    data.ImageURL,
	})
	if err != nil {
		h.logger.Error("book creation failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSONWithStatus(w, toBookResponse(b), http.StatusCreated)
}

func (h *BookHandler) update(w http.ResponseWriter, r *http.Request) {
	bookID, err := bookIDFromPath(r)
	if err != nil {
		render.ServiceError(w, "Invalid book id", http.StatusBadRequest)
		return
	}

	data, err := render.BindAndValidate[bookRequest](w, r)
	if err != nil {
		return
	}

	b, err := h.bookService.Update(r.Context(), models.Book{
		ID:          bookID,
		Title:       data.Title,
		Author:      data.Author,
		Genre:       data.Genre,
		Description: data.Description,
		ImageURL:    data.ImageURL,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrBookNotFound) {
			render.ServiceError(w, "Book not found", http.StatusNotFound)
			return
		}
		h.logger.Error("book update failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toBookResponse(b))
}

func (h *BookHandler) delete(w http.ResponseWriter, r *http.Request) {
	bookID, err := bookIDFromPath(r)
	if err != nil {
		render.ServiceError(w, "Invalid book id", http.StatusBadRequest)
		return
	}

	if err := h.bookService.Delete(r.Context(), bookID); err != nil {
		if errors.Is(err, apperrors.ErrBookNotFound) {
			render.ServiceError(w, "Book not found", http.StatusNotFound)
			return
		}
		h.logger.Error("book deletion failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
