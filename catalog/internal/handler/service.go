package handler

import (
	"context"

	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/Astemirdum/bookish-library/catalog/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CatalogService interface {
	AddBook(ctx context.Context, req model.AddBookRequest) (model.BookResponse, error)
	UpdateBook(ctx context.Context, bookID string, req model.UpdateBookRequest) (model.BookResponse, error)
	DeleteBook(ctx context.Context, bookID string) (model.BookResponse, error)
	GetBook(ctx context.Context, bookID string) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	Genres(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (model.CatalogStats, error)
	Borrow(ctx context.Context, userID, bookID string) (model.BorrowResponse, error)
	Return(ctx context.Context, userID, bookID string) (model.BorrowResponse, error)
	ActiveBorrows(ctx context.Context, userID string) ([]model.BorrowRecord, error)
	History(ctx context.Context, userID string) ([]model.BorrowRecord, error)
}

type AuthService interface {
	Login(ctx context.Context, req model.LoginRequest) (model.Session, error)
	Register(ctx context.Context, req model.RegisterRequest) (model.Session, error)
	Me(ctx context.Context, userID string) (model.User, error)
}

var (
	_ CatalogService = (*service.Service)(nil)
	_ AuthService    = (*service.AuthService)(nil)
)
