package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/salonbook/apiserver/internal/store"
	"github.com/salonbook/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	CreateIfMissing(ctx context.Context, user types.User) (bool, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
	cost int
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost, mainly to keep tests fast.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Authenticate checks the credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, validationf("missing credentials")
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, &AuthError{Msg: "invalid credentials"}
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, &AuthError{Msg: "invalid credentials"}
	}
	return user, nil
}

// AddClient creates a client account.
func (s *UserService) AddClient(ctx context.Context, username, password, phone string) (types.User, error) {
	username = strings.TrimSpace(username)
	phone = strings.TrimSpace(phone)
	if username == "" || password == "" {
		return types.User{}, validationf("username and password are required")
	}
	if phone != "" && !strings.HasPrefix(phone, "+") && !strings.HasPrefix(phone, "whatsapp:") {
		return types.User{}, validationf("phone must be in E.164 form")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Role:         types.RoleClient,
		Phone:        phone,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, &ConflictError{Msg: "username already exists", Err: err}
		}
		return types.User{}, err
	}
	return user, nil
}

// EnsureAdmin seeds the admin account. An existing account with the same
// username is left untouched, even when it is not an admin.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return validationf("admin username and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	created, err := s.repo.CreateIfMissing(ctx, types.User{
		Username:     username,
		Role:         types.RoleAdmin,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Printf("seeded admin account %q", username)
		return nil
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if !existing.IsAdmin() {
		log.Printf("account %q exists with role %q; it cannot use the admin routes", username, existing.Role)
	}
	return nil
}

// ListClients returns every account, newest first.
func (s *UserService) ListClients(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}
