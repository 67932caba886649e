package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Astemirdum/bookish-library/catalog/internal/errs"
	"github.com/Astemirdum/bookish-library/catalog/internal/events"
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/Astemirdum/bookish-library/catalog/internal/repository"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Service struct {
	log       *zap.Logger
	repo      repository.Repository
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo repository.Repository, publisher events.Publisher, log *zap.Logger) *Service {
	return &Service{
		log:       log.Named("service"),
		repo:      repo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) AddBook(ctx context.Context, req model.AddBookRequest) (model.BookResponse, error) {
	book, err := s.repo.AddBook(ctx, req)
	if err != nil {
		return model.BookResponse{}, err
	}
	s.publish(ctx, events.Event{Type: events.BookAdded, BookID: book.ID, Book: &book})
	return model.BookResponse{
		Book: book,
		Notice: model.Notice{
			Title:       "Book added successfully",
			Description: fmt.Sprintf("%q has been added to the library", book.Title),
		},
	}, nil
}

func (s *Service) UpdateBook(ctx context.Context, bookID string, req model.UpdateBookRequest) (model.BookResponse, error) {
	book, err := s.repo.UpdateBook(ctx, bookID, req)
	if err != nil {
		s.reject("UpdateBook", err, zap.String("bookID", bookID))
		return model.BookResponse{}, err
	}
	s.publish(ctx, events.Event{Type: events.BookUpdated, BookID: book.ID, Book: &book})
	return model.BookResponse{
		Book: book,
		Notice: model.Notice{
			Title:       "Book updated successfully",
			Description: "The book information has been updated",
		},
	}, nil
}

func (s *Service) DeleteBook(ctx context.Context, bookID string) (model.BookResponse, error) {
	book, err := s.repo.DeleteBook(ctx, bookID)
	if err != nil {
		s.reject("DeleteBook", err, zap.String("bookID", bookID))
		return model.BookResponse{}, err
	}
	s.publish(ctx, events.Event{Type: events.BookDeleted, BookID: book.ID})
	return model.BookResponse{
		Book: book,
		Notice: model.Notice{
			Title:       "Book deleted",
			Description: fmt.Sprintf("%q has been removed from the library", book.Title),
		},
	}, nil
}

func (s *Service) GetBook(ctx context.Context, bookID string) (model.Book, error) {
	return s.repo.GetBook(ctx, bookID)
}

func (s *Service) ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	return s.repo.ListBooks(ctx, filter)
}

func (s *Service) Genres(ctx context.Context) ([]string, error) {
	return s.repo.Genres(ctx)
}

func (s *Service) Stats(ctx context.Context) (model.CatalogStats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) Borrow(ctx context.Context, userID, bookID string) (model.BorrowResponse, error) {
	rec, err := s.repo.Borrow(ctx, userID, bookID)
	if err != nil {
		s.reject("Borrow", err, zap.String("userID", userID), zap.String("bookID", bookID))
		return model.BorrowResponse{}, err
	}
	s.publish(ctx, events.Event{Type: events.BookBorrowed, BookID: bookID, UserID: userID, RecordID: rec.ID})
	return model.BorrowResponse{
		Record: rec,
		Notice: model.Notice{
			Title:       "Book borrowed successfully",
			Description: fmt.Sprintf("You have borrowed %q", rec.Book.Title),
		},
	}, nil
}

func (s *Service) Return(ctx context.Context, userID, bookID string) (model.BorrowResponse, error) {
	rec, err := s.repo.Return(ctx, userID, bookID)
	if err != nil {
		s.reject("Return", err, zap.String("userID", userID), zap.String("bookID", bookID))
		return model.BorrowResponse{}, err
	}
	s.publish(ctx, events.Event{Type: events.BookReturned, BookID: bookID, UserID: userID, RecordID: rec.ID})
	return model.BorrowResponse{
		Record: rec,
		Notice: model.Notice{
			Title:       "Book returned successfully",
			Description: fmt.Sprintf("You have returned %q", rec.Book.Title),
		},
	}, nil
}

func (s *Service) ActiveBorrows(ctx context.Context, userID string) ([]model.BorrowRecord, error) {
	return s.repo.ActiveBorrows(ctx, userID)
}

func (s *Service) History(ctx context.Context, userID string) ([]model.BorrowRecord, error) {
	return s.repo.History(ctx, userID)
}

// publish never fails the caller: the ledger change has already happened.
func (s *Service) publish(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("publish event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

func (s *Service) reject(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if isRejection(err) {
		s.log.Warn(op+" rejected", fields...)
		return
	}
	s.log.Error(op, fields...)
}

func isRejection(err error) bool {
	for _, target := range []error{
		errs.ErrNotFound,
		errs.ErrBookUnavailable,
		errs.ErrAlreadyBorrowed,
		errs.ErrNoActiveBorrow,
		errs.ErrTotalBelowLoaned,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
