package handler

import (
	"net/http"

	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/labstack/echo/v4"
)

// Login godoc
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body  model.LoginRequest  true  "credentials"
// @Success      200  {object}  model.Session
// @Failure      401  {object}  echo.HTTPError
// @Router       /login [post]
func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.authSvc.Login(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Register godoc
// @Summary      Create an account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        account  body  model.RegisterRequest  true  "account"
// @Success      201  {object}  model.Session
// @Failure      409  {object}  echo.HTTPError
// @Router       /register [post]
func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.authSvc.Register(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// Me restores the session of the token holder.
func (h *Handler) Me(c echo.Context) error {
	profile, err := currentProfile(c)
	if err != nil {
		return err
	}
	user, err := h.authSvc.Me(c.Request().Context(), profile.UserID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Logout is stateless: the client drops its token.
func (h *Handler) Logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
