package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Astemirdum/bookish-library/catalog/internal/errs"
	"github.com/Astemirdum/bookish-library/catalog/internal/handler"
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/Astemirdum/bookish-library/pkg/auth"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	service_mocks "github.com/Astemirdum/bookish-library/catalog/internal/handler/mocks"
)

var (
	reader = auth.Profile{UserID: "u1", Email: "user@library.com", Name: "Regular User", Role: auth.RoleUser}
	admin  = auth.Profile{UserID: "a1", Email: "admin@library.com", Name: "Library Admin", Role: auth.RoleAdmin}

	orwell = model.Book{
		ID:              "b1",
		Title:           "1984",
		Author:          "George Orwell",
		Genre:           "Dystopian Fiction",
		TotalCopies:     3,
		AvailableCopies: 3,
	}
	orwellJSON = `{"id":"b1","title":"1984","author":"George Orwell","genre":"Dystopian Fiction","totalCopies":3,"availableCopies":3}`
	borrowedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
)

type fixture struct {
	e       *echo.Echo
	catalog *service_mocks.MockCatalogService
	auth    *service_mocks.MockAuthService
	tokens  *auth.TokenManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	c := gomock.NewController(t)
	catalog := service_mocks.NewMockCatalogService(c)
	authSvc := service_mocks.NewMockAuthService(c)
	tokens := auth.NewTokenManager(auth.Config{Secret: "test", TTL: time.Hour})
	h := handler.New(catalog, authSvc, tokens, zap.NewExample().Named("test"))
	return fixture{e: h.NewRouter(), catalog: catalog, auth: authSvc, tokens: tokens}
}

func (f fixture) do(t *testing.T, method, target, body string, p *auth.Profile) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, http.NoBody)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if p != nil {
		token, _, err := f.tokens.Issue(*p)
		require.NoError(t, err)
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.e.ServeHTTP(w, r)
	return w
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockCatalogService)

	var tests = []struct {
		name         string
		target       string
		profile      *auth.Profile
		mockBehavior mockBehavior
		response     response
	}{
		{
			name:    "ok",
			target:  "/api/v1/books?q=orwell&genre=Dystopian%20Fiction&available=true&page=1&size=2",
			profile: &reader,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					ListBooks(gomock.Any(), model.BookFilter{
						Query:         "orwell",
						Genre:         "Dystopian Fiction",
						AvailableOnly: true,
						Page:          1,
						Size:          2,
					}).
					Return(model.ListBooks{
						Paging: model.Paging{Page: 1, PageSize: 2, TotalElements: 1},
						Items:  []model.Book{orwell},
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"page":1,"pageSize":2,"totalElements":1,"items":[` + orwellJSON + `]}`,
			},
		},
		{
			name:         "err. no token",
			target:       "/api/v1/books",
			mockBehavior: func(r *service_mocks.MockCatalogService) {},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"message":"No Authorization Header"}`,
			},
		},
		{
			name:         "err. bad page",
			target:       "/api/v1/books?page=first",
			profile:      &reader,
			mockBehavior: func(r *service_mocks.MockCatalogService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"page is invalid"}`,
			},
		},
		{
			name:    "err. internal",
			target:  "/api/v1/books",
			profile: &reader,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					ListBooks(gomock.Any(), model.BookFilter{}).
					Return(model.ListBooks{}, errors.New("db internal"))
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"db internal"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			tt.mockBehavior(f.catalog)

			w := f.do(t, http.MethodGet, tt.target, "", tt.profile)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Borrow(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}

	var tests = []struct {
		name     string
		err      error
		response response
	}{
		{
			name: "ok",
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"record":{"id":"r1","userId":"u1","bookId":"b1","borrowDate":"2024-01-02T03:04:05Z","book":` + orwellJSON + `},` +
					`"notice":{"title":"Book borrowed successfully","description":"You have borrowed \"1984\""}}`,
			},
		},
		{
			name: "err. unavailable",
			err:  errs.ErrBookUnavailable,
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"this book is not available"}`,
			},
		},
		{
			name: "err. already borrowed",
			err:  errs.ErrAlreadyBorrowed,
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"` + errs.ErrAlreadyBorrowed.Error() + `"}`,
			},
		},
		{
			name: "err. not found",
			err:  errs.ErrNotFound,
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"` + errs.ErrNotFound.Error() + `"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			resp := model.BorrowResponse{}
			if tt.err == nil {
				resp = model.BorrowResponse{
					Record: model.BorrowRecord{ID: "r1", UserID: "u1", BookID: "b1", BorrowDate: borrowedAt, Book: orwell},
					Notice: model.Notice{Title: "Book borrowed successfully", Description: `You have borrowed "1984"`},
				}
			}
			f.catalog.EXPECT().Borrow(gomock.Any(), reader.UserID, "b1").Return(resp, tt.err)

			w := f.do(t, http.MethodPost, "/api/v1/books/b1/borrow", "", &reader)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Return(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.catalog.EXPECT().
		Return(gomock.Any(), reader.UserID, "b1").
		Return(model.BorrowResponse{}, errs.ErrNoActiveBorrow)

	w := f.do(t, http.MethodPost, "/api/v1/books/b1/return", "", &reader)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, `{"message":"no active borrow record found"}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_Borrows(t *testing.T) {
	t.Parallel()
	record := model.BorrowRecord{ID: "r1", UserID: "u1", BookID: "b1", BorrowDate: borrowedAt, Book: orwell}
	recordJSON := `[{"id":"r1","userId":"u1","bookId":"b1","borrowDate":"2024-01-02T03:04:05Z","book":` + orwellJSON + `}]`

	t.Run("active", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.catalog.EXPECT().ActiveBorrows(gomock.Any(), reader.UserID).Return([]model.BorrowRecord{record}, nil)

		w := f.do(t, http.MethodGet, "/api/v1/borrows", "", &reader)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, recordJSON, strings.Trim(w.Body.String(), "\n"))
	})
	t.Run("history", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.catalog.EXPECT().History(gomock.Any(), reader.UserID).Return([]model.BorrowRecord{record}, nil)

		w := f.do(t, http.MethodGet, "/api/v1/borrows?all=true", "", &reader)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, recordJSON, strings.Trim(w.Body.String(), "\n"))
	})
}

func TestHandler_AddBook(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockCatalogService)

	var tests = []struct {
		name         string
		body         string
		profile      *auth.Profile
		mockBehavior mockBehavior
		response     response
	}{
		{
			name:    "ok",
			body:    `{"title":"1984","author":"George Orwell","genre":"Dystopian Fiction","totalCopies":3}`,
			profile: &admin,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					AddBook(gomock.Any(), model.AddBookRequest{
						Title:       "1984",
						Author:      "George Orwell",
						Genre:       "Dystopian Fiction",
						TotalCopies: 3,
					}).
					Return(model.BookResponse{
						Book:   orwell,
						Notice: model.Notice{Title: "Book added successfully", Description: `"1984" has been added to the library`},
					}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"book":` + orwellJSON + `,"notice":{"title":"Book added successfully","description":"\"1984\" has been added to the library"}}`,
			},
		},
		{
			name:         "err. not admin",
			body:         `{"title":"1984","author":"George Orwell","genre":"Dystopian Fiction","totalCopies":3}`,
			profile:      &reader,
			mockBehavior: func(r *service_mocks.MockCatalogService) {},
			response: response{
				expectedCode: http.StatusForbidden,
				expectedBody: `{"message":"forbidden"}`,
			},
		},
		{
			name:         "err. negative total",
			body:         `{"title":"1984","author":"George Orwell","genre":"Dystopian Fiction","totalCopies":-1}`,
			profile:      &admin,
			mockBehavior: func(r *service_mocks.MockCatalogService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			tt.mockBehavior(f.catalog)

			w := f.do(t, http.MethodPost, "/api/v1/admin/books", tt.body, tt.profile)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_UpdateBook(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	total := 1
	f.catalog.EXPECT().
		UpdateBook(gomock.Any(), "b1", model.UpdateBookRequest{TotalCopies: &total}).
		Return(model.BookResponse{}, errs.ErrTotalBelowLoaned)

	w := f.do(t, http.MethodPatch, "/api/v1/admin/books/b1", `{"totalCopies":1}`, &admin)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, `{"message":"`+errs.ErrTotalBelowLoaned.Error()+`"}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_DeleteBook(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.catalog.EXPECT().DeleteBook(gomock.Any(), "missing").Return(model.BookResponse{}, errs.ErrNotFound)

	w := f.do(t, http.MethodDelete, "/api/v1/admin/books/missing", "", &admin)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Stats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.catalog.EXPECT().Stats(gomock.Any()).Return(model.CatalogStats{Titles: 6, TotalCopies: 30, BorrowedCopies: 2, AvailableCopies: 28}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/admin/stats", "", &admin)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"titles":6,"totalCopies":30,"borrowedCopies":2,"availableCopies":28}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockAuthService)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok",
			body: `{"email":"user@library.com","password":"user123"}`,
			mockBehavior: func(r *service_mocks.MockAuthService) {
				r.EXPECT().
					Login(gomock.Any(), model.LoginRequest{Email: "user@library.com", Password: "user123"}).
					Return(model.Session{
						Token:     "t",
						ExpiresAt: borrowedAt,
						User:      model.User{ID: "u1", Email: "user@library.com", Name: "Regular User", Role: model.RoleUser},
						Notice:    model.Notice{Title: "Welcome back!", Description: "Logged in as Regular User"},
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"token":"t","expiresAt":"2024-01-02T03:04:05Z",` +
					`"user":{"id":"u1","email":"user@library.com","name":"Regular User","role":"user"},` +
					`"notice":{"title":"Welcome back!","description":"Logged in as Regular User"}}`,
			},
		},
		{
			name: "err. invalid credentials",
			body: `{"email":"user@library.com","password":"nope"}`,
			mockBehavior: func(r *service_mocks.MockAuthService) {
				r.EXPECT().
					Login(gomock.Any(), model.LoginRequest{Email: "user@library.com", Password: "nope"}).
					Return(model.Session{}, errs.ErrInvalidCredentials)
			},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"message":"invalid credentials"}`,
			},
		},
		{
			name:         "err. bad email",
			body:         `{"email":"user","password":"user123"}`,
			mockBehavior: func(r *service_mocks.MockAuthService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			tt.mockBehavior(f.auth)

			w := f.do(t, http.MethodPost, "/api/v1/login", tt.body, nil)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_Register(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.auth.EXPECT().
		Register(gomock.Any(), model.RegisterRequest{Email: "admin@library.com", Password: "secret1", Name: "Ann"}).
		Return(model.Session{}, errs.ErrEmailTaken)

	w := f.do(t, http.MethodPost, "/api/v1/register", `{"email":"admin@library.com","password":"secret1","name":"Ann"}`, nil)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_MeAndLogout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.auth.EXPECT().
		Me(gomock.Any(), reader.UserID).
		Return(model.User{ID: "u1", Email: "user@library.com", Name: "Regular User", Role: model.RoleUser}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/me", "", &reader)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"id":"u1","email":"user@library.com","name":"Regular User","role":"user"}`, strings.Trim(w.Body.String(), "\n"))

	w = f.do(t, http.MethodPost, "/api/v1/logout", "", &reader)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/manage/health", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}
