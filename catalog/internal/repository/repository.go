package repository

import (
	"context"

	"github.com/Astemirdum/bookish-library/catalog/internal/model"
)

type Repository interface {
	AddBook(ctx context.Context, req model.AddBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, bookID string, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, bookID string) (model.Book, error)
	GetBook(ctx context.Context, bookID string) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	Genres(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (model.CatalogStats, error)

	Borrow(ctx context.Context, userID, bookID string) (model.BorrowRecord, error)
	Return(ctx context.Context, userID, bookID string) (model.BorrowRecord, error)
	ActiveBorrows(ctx context.Context, userID string) ([]model.BorrowRecord, error)
	History(ctx context.Context, userID string) ([]model.BorrowRecord, error)
}
