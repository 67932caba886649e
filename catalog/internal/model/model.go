package model

import (
	"time"
)

type Book struct {
	ID              string `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	Author          string `json:"author" db:"author"`
	Genre           string `json:"genre" db:"genre"`
	TotalCopies     int    `json:"totalCopies" db:"total_copies"`
	AvailableCopies int    `json:"availableCopies" db:"available_copies"`
	Description     string `json:"description,omitempty" db:"description"`
	CoverURL        string `json:"coverUrl,omitempty" db:"cover_url"`
	PublishedYear   *int   `json:"publishedYear,omitempty" db:"published_year"`
}

// OnLoan is the number of copies currently borrowed.
func (b Book) OnLoan() int { return b.TotalCopies - b.AvailableCopies }

type BorrowRecord struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"userId" db:"user_id"`
	BookID     string     `json:"bookId" db:"book_id"`
	BorrowDate time.Time  `json:"borrowDate" db:"borrow_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
	// Book is a snapshot taken when the copy was borrowed.
	Book Book `json:"book" db:"-"`
}

func (r BorrowRecord) Active() bool { return r.ReturnDate == nil }

type AddBookRequest struct {
	Title         string `json:"title" validate:"required"`
	Author        string `json:"author" validate:"required"`
	Genre         string `json:"genre" validate:"required"`
	TotalCopies   int    `json:"totalCopies" validate:"gte=0"`
	Description   string `json:"description"`
	CoverURL      string `json:"coverUrl" validate:"omitempty,url"`
	PublishedYear *int   `json:"publishedYear"`
}

// UpdateBookRequest carries a partial update; nil fields are left as they are.
type UpdateBookRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=1"`
	Author        *string `json:"author" validate:"omitempty,min=1"`
	Genre         *string `json:"genre" validate:"omitempty,min=1"`
	TotalCopies   *int    `json:"totalCopies" validate:"omitempty,gte=0"`
	Description   *string `json:"description"`
	CoverURL      *string `json:"coverUrl" validate:"omitempty,url"`
	PublishedYear *int    `json:"publishedYear"`
}

type BookFilter struct {
	// Query matches title or author, case-insensitively.
	Query         string
	Genre         string
	AvailableOnly bool
	Page          int
	Size          int
}

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}

type CatalogStats struct {
	Titles          int `json:"titles"`
	TotalCopies     int `json:"totalCopies"`
	BorrowedCopies  int `json:"borrowedCopies"`
	AvailableCopies int `json:"availableCopies"`
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	PasswordHash []byte `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
	Notice    Notice    `json:"notice"`
}

// Notice is the user-facing notification attached to a mutation result.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type BookResponse struct {
	Book   Book   `json:"book"`
	Notice Notice `json:"notice"`
}

type BorrowResponse struct {
	Record BorrowRecord `json:"record"`
	Notice Notice       `json:"notice"`
}
