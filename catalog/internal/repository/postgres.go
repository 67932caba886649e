package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/Astemirdum/bookish-library/catalog/internal/errs"
	"github.com/Astemirdum/bookish-library/catalog/internal/ledger"
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	booksTableName         = `books`
	borrowRecordsTableName = `borrow_records`
)

var (
	qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	bookColumns   = []string{"id", "title", "author", "genre", "total_copies", "available_copies", "description", "cover_url", "published_year"}
	recordColumns = []string{"id", "user_id", "book_id", "borrow_date", "return_date", "book_snapshot"}
)

type recordRow struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	BookID     string     `db:"book_id"`
	BorrowDate time.Time  `db:"borrow_date"`
	ReturnDate *time.Time `db:"return_date"`
	Snapshot   []byte     `db:"book_snapshot"`
}

func (r recordRow) toModel() (model.BorrowRecord, error) {
	rec := model.BorrowRecord{
		ID:         r.ID,
		UserID:     r.UserID,
		BookID:     r.BookID,
		BorrowDate: r.BorrowDate,
		ReturnDate: r.ReturnDate,
	}
	if err := json.Unmarshal(r.Snapshot, &rec.Book); err != nil {
		return model.BorrowRecord{}, errors.Wrap(err, "decode book snapshot")
	}
	return rec, nil
}

type postgresRepository struct {
	db  *sqlx.DB
	log *zap.Logger
	now func() time.Time
}

var _ Repository = (*postgresRepository)(nil)

func NewPostgresRepository(db *sqlx.DB, log *zap.Logger) *postgresRepository {
	return &postgresRepository{
		db:  db,
		log: log.Named("repo"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *postgresRepository) AddBook(ctx context.Context, req model.AddBookRequest) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns(bookColumns...).
		Values(uuid.NewString(), req.Title, req.Author, req.Genre, req.TotalCopies, req.TotalCopies,
			req.Description, req.CoverURL, req.PublishedYear).
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		r.log.Error("AddBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, err
	}
	return book, nil
}

func (r *postgresRepository) UpdateBook(ctx context.Context, bookID string, req model.UpdateBookRequest) (model.Book, error) {
	var book model.Book
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := r.lockBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		book, err = ledger.ApplyUpdate(current, req)
		if err != nil {
			return err
		}
		query, args, err := qb.Update(booksTableName).
			SetMap(map[string]interface{}{
				"title":            book.Title,
				"author":           book.Author,
				"genre":            book.Genre,
				"total_copies":     book.TotalCopies,
				"available_copies": book.AvailableCopies,
				"description":      book.Description,
				"cover_url":        book.CoverURL,
				"published_year":   book.PublishedYear,
			}).
			Where(sq.Eq{"id": bookID}).
			ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (r *postgresRepository) DeleteBook(ctx context.Context, bookID string) (model.Book, error) {
	query, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"id": bookID}).
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *postgresRepository) GetBook(ctx context.Context, bookID string) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": bookID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

// likeEscaper makes user input match literally under ILIKE's default escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func bookFilterWhere(filter model.BookFilter) sq.And {
	where := sq.And{}
	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := "%" + likeEscaper.Replace(query) + "%"
		where = append(where, sq.Or{sq.ILike{"title": pattern}, sq.ILike{"author": pattern}})
	}
	if filter.Genre != "" {
		where = append(where, sq.Eq{"genre": filter.Genre})
	}
	if filter.AvailableOnly {
		where = append(where, sq.Gt{"available_copies": 0})
	}
	return where
}

func (r *postgresRepository) ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	where := bookFilterWhere(filter)

	countQuery, countArgs, err := qb.Select("count(*)").From(booksTableName).Where(where).ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return model.ListBooks{}, err
	}

	books := make([]model.Book, 0)
	q := qb.Select(bookColumns...).
		From(booksTableName).
		Where(where).
		OrderBy("seq")
	if filter.Page > 0 && filter.Size > 0 {
		from, to := ledger.PageWindow(total, filter.Page, filter.Size)
		if from == to {
			return model.ListBooks{
				Paging: model.Paging{Page: filter.Page, PageSize: filter.Size, TotalElements: total},
				Items:  books,
			}, nil
		}
		q = q.Limit(uint64(to - from)).Offset(uint64(from))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return model.ListBooks{}, err
	}

	return model.ListBooks{
		Paging: model.Paging{
			Page:          filter.Page,
			PageSize:      filter.Size,
			TotalElements: total,
		},
		Items: books,
	}, nil
}

func (r *postgresRepository) Genres(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("genre").
		From(booksTableName).
		GroupBy("genre").
		OrderBy("min(seq)").
		ToSql()
	if err != nil {
		return nil, err
	}
	genres := make([]string, 0)
	if err := r.db.SelectContext(ctx, &genres, query, args...); err != nil {
		return nil, err
	}
	return genres, nil
}

func (r *postgresRepository) Stats(ctx context.Context) (model.CatalogStats, error) {
	query, args, err := qb.Select(
		"count(*) as titles",
		"coalesce(sum(total_copies), 0) as total_copies",
		"coalesce(sum(available_copies), 0) as available_copies",
	).From(booksTableName).ToSql()
	if err != nil {
		return model.CatalogStats{}, err
	}
	var row struct {
		Titles          int `db:"titles"`
		TotalCopies     int `db:"total_copies"`
		AvailableCopies int `db:"available_copies"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return model.CatalogStats{}, err
	}
	return model.CatalogStats{
		Titles:          row.Titles,
		TotalCopies:     row.TotalCopies,
		BorrowedCopies:  row.TotalCopies - row.AvailableCopies,
		AvailableCopies: row.AvailableCopies,
	}, nil
}

func (r *postgresRepository) Borrow(ctx context.Context, userID, bookID string) (model.BorrowRecord, error) {
	var rec model.BorrowRecord
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		book, err := r.lockBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if book.AvailableCopies <= 0 {
			return errs.ErrBookUnavailable
		}

		snapshot, err := json.Marshal(book)
		if err != nil {
			return err
		}
		query, args, err := qb.Insert(borrowRecordsTableName).
			Columns(recordColumns...).
			Values(uuid.NewString(), userID, bookID, r.now(), nil, string(snapshot)).
			Suffix("returning " + strings.Join(recordColumns, ", ")).
			ToSql()
		if err != nil {
			return err
		}
		var row recordRow
		if err := tx.GetContext(ctx, &row, query, args...); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return errs.ErrAlreadyBorrowed
			}
			return err
		}
		if rec, err = row.toModel(); err != nil {
			return err
		}
		return r.shiftAvailable(ctx, tx, bookID, -1)
	})
	if err != nil {
		return model.BorrowRecord{}, err
	}
	return rec, nil
}

func (r *postgresRepository) Return(ctx context.Context, userID, bookID string) (model.BorrowRecord, error) {
	var rec model.BorrowRecord
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.lockBook(ctx, tx, bookID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrNoActiveBorrow
			}
			return err
		}
		query, args, err := qb.Update(borrowRecordsTableName).
			Set("return_date", r.now()).
			Where(sq.Eq{"user_id": userID, "book_id": bookID, "return_date": nil}).
			Suffix("returning " + strings.Join(recordColumns, ", ")).
			ToSql()
		if err != nil {
			return err
		}
		var row recordRow
		if err := tx.GetContext(ctx, &row, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNoActiveBorrow
			}
			return err
		}
		if rec, err = row.toModel(); err != nil {
			return err
		}
		return r.shiftAvailable(ctx, tx, bookID, 1)
	})
	if err != nil {
		return model.BorrowRecord{}, err
	}
	return rec, nil
}

func (r *postgresRepository) ActiveBorrows(ctx context.Context, userID string) ([]model.BorrowRecord, error) {
	return r.records(ctx, sq.Eq{"user_id": userID, "return_date": nil}, "seq")
}

func (r *postgresRepository) History(ctx context.Context, userID string) ([]model.BorrowRecord, error) {
	return r.records(ctx, sq.Eq{"user_id": userID}, "borrow_date desc", "seq desc")
}

func (r *postgresRepository) records(ctx context.Context, where sq.Sqlizer, orderBy ...string) ([]model.BorrowRecord, error) {
	query, args, err := qb.Select(recordColumns...).
		From(borrowRecordsTableName).
		Where(where).
		OrderBy(orderBy...).
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	items := make([]model.BorrowRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}

func (r *postgresRepository) lockBook(ctx context.Context, tx *sqlx.Tx, bookID string) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": bookID}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := tx.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *postgresRepository) shiftAvailable(ctx context.Context, tx *sqlx.Tx, bookID string, delta int) error {
	q := `
update books
    set available_copies = available_copies + $2
where id = $1`
	_, err := tx.ExecContext(ctx, q, bookID, delta)
	return err
}

func (r *postgresRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
