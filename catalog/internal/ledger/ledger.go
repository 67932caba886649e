// Package ledger keeps the book inventory and the borrow records in memory.
//
// Every operation is atomic: a rejected operation returns one of the errs
// sentinels and leaves the ledger exactly as it was. The ledger upholds
// 0 <= AvailableCopies <= TotalCopies for every book and at most one open
// borrow record per (user, book) pair.
package ledger

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/bookish-library/catalog/internal/errs"
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/google/uuid"
)

type Ledger struct {
	mu      sync.Mutex
	books   map[string]model.Book
	order   []string
	records []model.BorrowRecord

	newID func() string
	now   func() time.Time
}

type Option func(*Ledger)

func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(l *Ledger) { l.now = fn }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		books: make(map[string]model.Book),
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) AddBook(req model.AddBookRequest) model.Book {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := model.Book{
		ID:              l.newID(),
		Title:           req.Title,
		Author:          req.Author,
		Genre:           req.Genre,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
		Description:     req.Description,
		CoverURL:        req.CoverURL,
		PublishedYear:   cloneInt(req.PublishedYear),
	}
	l.books[b.ID] = b
	l.order = append(l.order, b.ID)
	return cloneBook(b)
}

// UpdateBook applies the non-nil fields of req, see ApplyUpdate.
func (l *Ledger) UpdateBook(id string, req model.UpdateBookRequest) (model.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	b, err := ApplyUpdate(b, req)
	if err != nil {
		return model.Book{}, err
	}
	l.books[id] = b
	return cloneBook(b), nil
}

// ApplyUpdate returns b with the non-nil fields of req applied. A new total
// keeps the number of copies on loan, so AvailableCopies becomes
// newTotal - (oldTotal - oldAvailable); a total below that count is rejected.
func ApplyUpdate(b model.Book, req model.UpdateBookRequest) (model.Book, error) {
	if req.TotalCopies != nil {
		available := *req.TotalCopies - b.OnLoan()
		if available < 0 {
			return model.Book{}, errs.ErrTotalBelowLoaned
		}
		b.TotalCopies = *req.TotalCopies
		b.AvailableCopies = available
	}
	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.Author != nil {
		b.Author = *req.Author
	}
	if req.Genre != nil {
		b.Genre = *req.Genre
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.CoverURL != nil {
		b.CoverURL = *req.CoverURL
	}
	if req.PublishedYear != nil {
		b.PublishedYear = cloneInt(req.PublishedYear)
	}
	return b, nil
}

// DeleteBook removes the book together with all of its borrow records,
// including the ones still open.
func (l *Ledger) DeleteBook(id string) (model.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	delete(l.books, id)
	for i, bookID := range l.order {
		if bookID == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	kept := l.records[:0]
	for _, r := range l.records {
		if r.BookID != id {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(l.records); i++ {
		l.records[i] = model.BorrowRecord{}
	}
	l.records = kept
	return cloneBook(b), nil
}

func (l *Ledger) Book(id string) (model.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	return cloneBook(b), nil
}

// ListBooks returns the books matching f in insertion order. Page and Size are
// 1-based page number and page length; zero in either disables paging.
func (l *Ledger) ListBooks(f model.BookFilter) model.ListBooks {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(f.Query))
	items := make([]model.Book, 0, len(l.order))
	for _, id := range l.order {
		b := l.books[id]
		if query != "" &&
			!strings.Contains(strings.ToLower(b.Title), query) &&
			!strings.Contains(strings.ToLower(b.Author), query) {
			continue
		}
		if f.Genre != "" && b.Genre != f.Genre {
			continue
		}
		if f.AvailableOnly && b.AvailableCopies == 0 {
			continue
		}
		items = append(items, cloneBook(b))
	}

	total := len(items)
	if f.Page > 0 && f.Size > 0 {
		from, to := PageWindow(total, f.Page, f.Size)
		items = items[from:to]
	}
	return model.ListBooks{
		Paging: model.Paging{
			Page:          f.Page,
			PageSize:      f.Size,
			TotalElements: total,
		},
		Items: items,
	}
}

// PageWindow returns the [from, to) bounds of the 1-based page over total
// items. Page and size must be positive; a page past the end is empty.
func PageWindow(total, page, size int) (from, to int) {
	if page-1 > total/size {
		return total, total
	}
	from = (page - 1) * size
	to = from + min(size, total-from)
	return from, to
}

// Genres lists the distinct genres in the order they first appear.
func (l *Ledger) Genres() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]struct{}, len(l.order))
	genres := make([]string, 0)
	for _, id := range l.order {
		g := l.books[id].Genre
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		genres = append(genres, g)
	}
	return genres
}

func (l *Ledger) Stats() model.CatalogStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var st model.CatalogStats
	for _, b := range l.books {
		st.Titles++
		st.TotalCopies += b.TotalCopies
		st.AvailableCopies += b.AvailableCopies
		st.BorrowedCopies += b.OnLoan()
	}
	return st
}

// Borrow lends one copy of the book to the user.
func (l *Ledger) Borrow(userID, bookID string) (model.BorrowRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.books[bookID]
	if !ok {
		return model.BorrowRecord{}, errs.ErrNotFound
	}
	if b.AvailableCopies <= 0 {
		return model.BorrowRecord{}, errs.ErrBookUnavailable
	}
	if l.openRecord(userID, bookID) >= 0 {
		return model.BorrowRecord{}, errs.ErrAlreadyBorrowed
	}

	rec := model.BorrowRecord{
		ID:         l.newID(),
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: l.now(),
		Book:       cloneBook(b),
	}
	l.records = append(l.records, rec)
	b.AvailableCopies--
	l.books[bookID] = b
	return cloneRecord(rec), nil
}

// Return closes the user's open record for the book.
func (l *Ledger) Return(userID, bookID string) (model.BorrowRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.openRecord(userID, bookID)
	if i < 0 {
		return model.BorrowRecord{}, errs.ErrNoActiveBorrow
	}
	b, ok := l.books[bookID]
	if !ok {
		return model.BorrowRecord{}, errs.ErrNotFound
	}

	now := l.now()
	l.records[i].ReturnDate = &now
	b.AvailableCopies++
	l.books[bookID] = b
	return cloneRecord(l.records[i]), nil
}

// ActiveBorrows lists the user's open records in the order they were created.
func (l *Ledger) ActiveBorrows(userID string) []model.BorrowRecord {
	return l.userRecords(userID, true)
}

// History lists all of the user's records, open and closed, newest first.
func (l *Ledger) History(userID string) []model.BorrowRecord {
	items := l.userRecords(userID, false)
	// latest insertion first among equal borrow dates
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].BorrowDate.After(items[j].BorrowDate)
	})
	return items
}

func (l *Ledger) userRecords(userID string, activeOnly bool) []model.BorrowRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]model.BorrowRecord, 0)
	for _, r := range l.records {
		if r.UserID != userID || (activeOnly && !r.Active()) {
			continue
		}
		items = append(items, cloneRecord(r))
	}
	return items
}

// openRecord must be called with mu held; -1 means none.
func (l *Ledger) openRecord(userID, bookID string) int {
	for i, r := range l.records {
		if r.UserID == userID && r.BookID == bookID && r.Active() {
			return i
		}
	}
	return -1
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneBook(b model.Book) model.Book {
	b.PublishedYear = cloneInt(b.PublishedYear)
	return b
}

func cloneRecord(r model.BorrowRecord) model.BorrowRecord {
	if r.ReturnDate != nil {
		t := *r.ReturnDate
		r.ReturnDate = &t
	}
	r.Book = cloneBook(r.Book)
	return r
}
