package service

import (
	"context"
	"fmt"

	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/Astemirdum/bookish-library/pkg/auth"
	"go.uber.org/zap"
)

type Directory interface {
	Login(ctx context.Context, email, password string) (model.User, error)
	Register(ctx context.Context, email, password, name string) (model.User, error)
	Get(ctx context.Context, id string) (model.User, error)
}

type AuthService struct {
	dir    Directory
	tokens *auth.TokenManager
	log    *zap.Logger
}

func NewAuthService(dir Directory, tokens *auth.TokenManager, log *zap.Logger) *AuthService {
	return &AuthService{
		dir:    dir,
		tokens: tokens,
		log:    log.Named("auth"),
	}
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.Session, error) {
	user, err := s.dir.Login(ctx, req.Email, req.Password)
	if err != nil {
		return model.Session{}, err
	}
	return s.session(user, model.Notice{
		Title:       "Welcome back!",
		Description: fmt.Sprintf("Logged in as %s", user.Name),
	})
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.Session, error) {
	user, err := s.dir.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return model.Session{}, err
	}
	s.log.Info("user registered", zap.String("userID", user.ID))
	return s.session(user, model.Notice{
		Title:       "Account created!",
		Description: fmt.Sprintf("Welcome to the library, %s!", user.Name),
	})
}

func (s *AuthService) Me(ctx context.Context, userID string) (model.User, error) {
	return s.dir.Get(ctx, userID)
}

func (s *AuthService) session(user model.User, notice model.Notice) (model.Session, error) {
	token, exp, err := s.tokens.Issue(auth.Profile{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
	})
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{
		Token:     token,
		ExpiresAt: exp,
		User:      user,
		Notice:    notice,
	}, nil
}
