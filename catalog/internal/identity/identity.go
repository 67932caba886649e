package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/Astemirdum/bookish-library/catalog/internal/errs"
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Account struct {
	Email    string
	Password string
	Name     string
	Role     model.Role
}

// DemoAccounts are the sign-ins available out of the box.
func DemoAccounts() []Account {
	return []Account{
		{Email: "admin@library.com", Password: "admin123", Name: "Library Admin", Role: model.RoleAdmin},
		{Email: "user@library.com", Password: "user123", Name: "John Reader", Role: model.RoleUser},
	}
}

type Directory struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
	cost    int
	log     *zap.Logger
}

func NewDirectory(log *zap.Logger, cost int) *Directory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
		cost:    cost,
		log:     log.Named("identity"),
	}
}

func (d *Directory) Seed(accounts []Account) error {
	for _, a := range accounts {
		if _, err := d.create(a); err != nil {
			return errors.Wrapf(err, "seed %s", a.Email)
		}
	}
	return nil
}

func (d *Directory) Login(_ context.Context, email, password string) (model.User, error) {
	d.mu.RLock()
	id, ok := d.byEmail[normalize(email)]
	user := d.byID[id]
	d.mu.RUnlock()

	if !ok {
		return model.User{}, errs.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		d.log.Debug("login rejected", zap.String("email", user.Email))
		return model.User{}, errs.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates an account with the user role.
func (d *Directory) Register(_ context.Context, email, password, name string) (model.User, error) {
	return d.create(Account{Email: email, Password: password, Name: name, Role: model.RoleUser})
}

func (d *Directory) Get(_ context.Context, id string) (model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.byID[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return user, nil
}

func (d *Directory) create(a Account) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), d.cost)
	if err != nil {
		return model.User{}, errors.Wrap(err, "bcrypt")
	}
	email := normalize(a.Email)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byEmail[email]; taken {
		return model.User{}, errs.ErrEmailTaken
	}
	user := model.User{
		ID:           UserID(email),
		Email:        email,
		Name:         a.Name,
		Role:         a.Role,
		PasswordHash: hash,
	}
	d.byID[user.ID] = user
	d.byEmail[email] = user.ID
	return user, nil
}

// UserID is derived from the normalized email, so an account keeps its id
// across restarts and the borrow records stored under it stay reachable.
func UserID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+normalize(email))).String()
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
