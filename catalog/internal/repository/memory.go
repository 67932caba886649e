package repository

import (
	"context"

	"github.com/Astemirdum/bookish-library/catalog/internal/ledger"
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"go.uber.org/zap"
)

type memoryRepository struct {
	ledger *ledger.Ledger
	log    *zap.Logger
}

var _ Repository = (*memoryRepository)(nil)

func NewMemoryRepository(l *ledger.Ledger, log *zap.Logger) *memoryRepository {
	return &memoryRepository{
		ledger: l,
		log:    log.Named("repo"),
	}
}

func (r *memoryRepository) AddBook(_ context.Context, req model.AddBookRequest) (model.Book, error) {
	return r.ledger.AddBook(req), nil
}

func (r *memoryRepository) UpdateBook(_ context.Context, bookID string, req model.UpdateBookRequest) (model.Book, error) {
	return r.ledger.UpdateBook(bookID, req)
}

func (r *memoryRepository) DeleteBook(_ context.Context, bookID string) (model.Book, error) {
	return r.ledger.DeleteBook(bookID)
}

func (r *memoryRepository) GetBook(_ context.Context, bookID string) (model.Book, error) {
	return r.ledger.Book(bookID)
}

func (r *memoryRepository) ListBooks(_ context.Context, filter model.BookFilter) (model.ListBooks, error) {
	list := r.ledger.ListBooks(filter)
	r.log.Debug("ListBooks", zap.Any("filter", filter), zap.Int("total", list.TotalElements))
	return list, nil
}

func (r *memoryRepository) Genres(_ context.Context) ([]string, error) {
	return r.ledger.Genres(), nil
}

func (r *memoryRepository) Stats(_ context.Context) (model.CatalogStats, error) {
	return r.ledger.Stats(), nil
}

func (r *memoryRepository) Borrow(_ context.Context, userID, bookID string) (model.BorrowRecord, error) {
	return r.ledger.Borrow(userID, bookID)
}

func (r *memoryRepository) Return(_ context.Context, userID, bookID string) (model.BorrowRecord, error) {
	return r.ledger.Return(userID, bookID)
}

func (r *memoryRepository) ActiveBorrows(_ context.Context, userID string) ([]model.BorrowRecord, error) {
	return r.ledger.ActiveBorrows(userID), nil
}

func (r *memoryRepository) History(_ context.Context, userID string) ([]model.BorrowRecord, error) {
	return r.ledger.History(userID), nil
}
