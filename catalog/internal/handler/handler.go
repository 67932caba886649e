package handler

import (
	"net/http"
	"strconv"

	"github.com/Astemirdum/bookish-library/catalog/internal/errs"
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/Astemirdum/bookish-library/pkg/auth"
	md "github.com/Astemirdum/bookish-library/pkg/middleware"
	"github.com/Astemirdum/bookish-library/pkg/validate"
	_ "github.com/Astemirdum/bookish-library/swagger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

type Handler struct {
	catalogSvc CatalogService
	authSvc    AuthService
	tokens     md.TokenParser
	log        *zap.Logger
}

func New(catalogSvc CatalogService, authSvc AuthService, tokens md.TokenParser, log *zap.Logger) *Handler {
	return &Handler{
		catalogSvc: catalogSvc,
		authSvc:    authSvc,
		tokens:     tokens,
		log:        log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)
	api.POST("/login", h.Login)
	api.POST("/register", h.Register)

	user := api.Group("", md.JwtAuthentication(h.tokens))
	user.POST("/logout", h.Logout)
	user.GET("/me", h.Me)
	user.GET("/books", h.ListBooks)
	user.GET("/books/:bookId", h.GetBook)
	user.GET("/genres", h.Genres)
	user.POST("/books/:bookId/borrow", h.Borrow)
	user.POST("/books/:bookId/return", h.Return)
	user.GET("/borrows", h.Borrows)

	admin := user.Group("/admin", md.RequireRole(auth.RoleAdmin))
	admin.POST("/books", h.AddBook)
	admin.PATCH("/books/:bookId", h.UpdateBook)
	admin.DELETE("/books/:bookId", h.DeleteBook)
	admin.GET("/stats", h.Stats)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// ListBooks godoc
// @Summary      List books
// @Tags         books
// @Produce      json
// @Param        q          query  string  false  "title or author substring"
// @Param        genre      query  string  false  "exact genre"
// @Param        available  query  bool    false  "only books with free copies"
// @Param        page       query  int     false  "page, 1-based"
// @Param        size       query  int     false  "page size"
// @Success      200  {object}  model.ListBooks
// @Security     BearerAuth
// @Router       /books [get]
func (h *Handler) ListBooks(c echo.Context) error {
	var (
		err    error
		filter = model.BookFilter{
			Query: c.QueryParam("q"),
			Genre: c.QueryParam("genre"),
		}
	)
	if pageParam := c.QueryParam("page"); pageParam != "" {
		if filter.Page, err = strconv.Atoi(pageParam); err != nil || filter.Page < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "page is invalid")
		}
	}
	if sizeParam := c.QueryParam("size"); sizeParam != "" {
		if filter.Size, err = strconv.Atoi(sizeParam); err != nil || filter.Size < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "size is invalid")
		}
	}
	if availableParam := c.QueryParam("available"); availableParam != "" {
		if filter.AvailableOnly, err = strconv.ParseBool(availableParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "available is invalid")
		}
	}

	books, err := h.catalogSvc.ListBooks(c.Request().Context(), filter)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

// GetBook godoc
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Param        bookId  path  string  true  "book id"
// @Success      200  {object}  model.Book
// @Failure      404  {object}  echo.HTTPError
// @Security     BearerAuth
// @Router       /books/{bookId} [get]
func (h *Handler) GetBook(c echo.Context) error {
	book, err := h.catalogSvc.GetBook(c.Request().Context(), c.Param("bookId"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) Genres(c echo.Context) error {
	genres, err := h.catalogSvc.Genres(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, genres)
}

// Borrow godoc
// @Summary      Borrow a copy
// @Tags         borrows
// @Produce      json
// @Param        bookId  path  string  true  "book id"
// @Success      200  {object}  model.BorrowResponse
// @Failure      404  {object}  echo.HTTPError
// @Failure      409  {object}  echo.HTTPError
// @Security     BearerAuth
// @Router       /books/{bookId}/borrow [post]
func (h *Handler) Borrow(c echo.Context) error {
	profile, err := currentProfile(c)
	if err != nil {
		return err
	}
	resp, err := h.catalogSvc.Borrow(c.Request().Context(), profile.UserID, c.Param("bookId"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Return godoc
// @Summary      Return a borrowed copy
// @Tags         borrows
// @Produce      json
// @Param        bookId  path  string  true  "book id"
// @Success      200  {object}  model.BorrowResponse
// @Failure      409  {object}  echo.HTTPError
// @Security     BearerAuth
// @Router       /books/{bookId}/return [post]
func (h *Handler) Return(c echo.Context) error {
	profile, err := currentProfile(c)
	if err != nil {
		return err
	}
	resp, err := h.catalogSvc.Return(c.Request().Context(), profile.UserID, c.Param("bookId"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Borrows godoc
// @Summary      Current user's borrow records
// @Description  Open records in borrow order; all=true returns the full history, newest first.
// @Tags         borrows
// @Produce      json
// @Param        all  query  bool  false  "include returned records"
// @Success      200  {array}  model.BorrowRecord
// @Security     BearerAuth
// @Router       /borrows [get]
func (h *Handler) Borrows(c echo.Context) error {
	profile, err := currentProfile(c)
	if err != nil {
		return err
	}
	all := false
	if allParam := c.QueryParam("all"); allParam != "" {
		if all, err = strconv.ParseBool(allParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "all is invalid")
		}
	}

	ctx := c.Request().Context()
	var records []model.BorrowRecord
	if all {
		records, err = h.catalogSvc.History(ctx, profile.UserID)
	} else {
		records, err = h.catalogSvc.ActiveBorrows(ctx, profile.UserID)
	}
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, records)
}

// AddBook godoc
// @Summary      Add a title
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        book  body  model.AddBookRequest  true  "book"
// @Success      201  {object}  model.BookResponse
// @Failure      400  {object}  echo.HTTPError
// @Failure      403  {object}  echo.HTTPError
// @Security     BearerAuth
// @Router       /admin/books [post]
func (h *Handler) AddBook(c echo.Context) error {
	var req model.AddBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := h.catalogSvc.AddBook(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// UpdateBook godoc
// @Summary      Edit a title
// @Description  A new totalCopies keeps the copies on loan; a total below them is rejected.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        bookId  path  string                   true  "book id"
// @Param        book    body  model.UpdateBookRequest  true  "fields to change"
// @Success      200  {object}  model.BookResponse
// @Failure      404  {object}  echo.HTTPError
// @Failure      409  {object}  echo.HTTPError
// @Security     BearerAuth
// @Router       /admin/books/{bookId} [patch]
func (h *Handler) UpdateBook(c echo.Context) error {
	var req model.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := h.catalogSvc.UpdateBook(c.Request().Context(), c.Param("bookId"), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteBook godoc
// @Summary      Delete a title and its borrow records
// @Tags         admin
// @Produce      json
// @Param        bookId  path  string  true  "book id"
// @Success      200  {object}  model.BookResponse
// @Failure      404  {object}  echo.HTTPError
// @Security     BearerAuth
// @Router       /admin/books/{bookId} [delete]
func (h *Handler) DeleteBook(c echo.Context) error {
	resp, err := h.catalogSvc.DeleteBook(c.Request().Context(), c.Param("bookId"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.catalogSvc.Stats(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func currentProfile(c echo.Context) (auth.Profile, error) {
	p, ok := auth.GetAuthContext(c.Request().Context())
	if !ok || p.UserID == "" {
		return auth.Profile{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return p, nil
}

func (h *Handler) httpError(err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errs.ErrBookUnavailable),
		errors.Is(err, errs.ErrAlreadyBorrowed),
		errors.Is(err, errs.ErrNoActiveBorrow),
		errors.Is(err, errs.ErrTotalBelowLoaned),
		errors.Is(err, errs.ErrEmailTaken):
		code = http.StatusConflict
	case errors.Is(err, errs.ErrInvalidCredentials):
		code = http.StatusUnauthorized
	default:
		h.log.Error("internal", zap.Error(err))
	}
	return echo.NewHTTPError(code, err.Error())
}
