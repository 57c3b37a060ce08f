package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/logger"
	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/repository"
	"github.com/ivmartynov/bookverse/internal/service/auth"
)

// Bootstrap admin credentials. Meant for local and demo setups, change
// the password right after the first login on anything shared.
const (
	adminUsername = "admin"
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
)

type sampleBook struct {
	title, author, genre, description string
}

var sampleBooks = []sampleBook{
	{"The Great Gatsby", "F. Scott Fitzgerald", "Fiction", "A classic American novel set in the Jazz Age"},
	{"1984", "George Orwell", "Fiction", "A dystopian social science fiction novel"},
	{"Gone Girl", "Gillian Flynn", "Mystery", "A psychological thriller about a missing wife"},
	{"Murder on the Orient Express", "Agatha Christie", "Mystery", "The queen of mystery novels"},
	{"The Notebook", "Nicholas Sparks", "Romance", "A timeless love story"},
	{"Jane Eyre", "Charlotte Brontë", "Romance", "A Gothic romance classic"},
	{"The Hobbit", "J.R.R. Tolkien", "Fantasy", "Bilbo's unexpected journey"},
	{"American Gods", "Neil Gaiman", "Fantasy", "Old gods vs new in modern America"},
	{"Dune", "Frank Herbert", "Science Fiction", "Epic space opera on the desert planet Arrakis"},
	{"The Martian", "Andy Weir", "Science Fiction", "Survival on Mars with science and humor"},
	{"Sapiens", "Yuval Noah Harari", "Non-Fiction", "A brief history of humankind"},
	{"Atomic Habits", "James Clear", "Non-Fiction", "How to build good habits and break bad ones"},
}

var sampleReviewTexts = []string{
	"Absolutely phenomenal! This book captivated me from the very first page.",
	"A literary masterpiece that deserves all the praise it receives.",
	"Incredible character development and a plot that keeps you guessing.",
	"Beautifully written with prose that flows like poetry.",
	"A page-turner that I finished in one sitting.",
}

type Seeder struct {
	storage repository.Storage
	hasher  auth.PasswordHasher
	logger  logger.Logger
}

func New(storage repository.Storage, hasher auth.PasswordHasher, l logger.Logger) *Seeder {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &Seeder{storage: storage, hasher: hasher, logger: l}
}

// Run fills an empty database with the demo catalog: an admin account,
// sample books and a few reviews per book. Safe to call on every start,
// existing data is left alone.
func (s *Seeder) Run(ctx context.Context) error {
	admin, err := s.ensureAdmin(ctx)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	count, err := s.storage.Book().CountBooks(ctx)
	if err != nil {
		return fmt.Errorf("seed books: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, sb := range sampleBooks {
		book, err := s.storage.Book().CreateBook(ctx, models.Book{
			Title:       sb.title,
			Author:      sb.author,
			Genre:       sb.genre,
			Description: sb.description,
		})
		if err != nil {
			return fmt.Errorf("seed books: %w", err)
		}

		for i, text := range sampleReviewTexts {
			_, err := s.storage.Review().CreateReview(ctx, models.Review{
				BookID:     book.ID,
				UserID:     admin.ID,
				Rating:     i%5 + 1,
				ReviewText: text,
			})
			if err != nil {
				return fmt.Errorf("seed reviews: %w", err)
			}
		}
	}

	s.logger.Info("demo catalog seeded",
		"books", len(sampleBooks),
		"reviews_per_book", len(sampleReviewTexts),
	)
	return nil
}

func (s *Seeder) ensureAdmin(ctx context.Context) (models.User, error) {
	admin, err := s.storage.User().GetUserByUsername(ctx, adminUsername)
	switch {
	case err == nil:
		return admin, nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return models.User{}, err
	}

	hash, err := s.hasher.Hash(adminPassword)
	if err != nil {
		return models.User{}, err
	}

	admin, err = s.storage.User().CreateUser(ctx, adminUsername, adminEmail, hash, models.RoleAdmin)
	if err != nil {
		return models.User{}, err
	}

	s.logger.Info("admin user created", "username", adminUsername)
	return admin, nil
}
