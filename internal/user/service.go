package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"todo_api/internal/auth"
	"todo_api/internal/utils"

	"github.com/sirupsen/logrus"
)

type UserService struct {
	repo   UserRepositoryInterface
	tokens auth.TokenServiceInterface
	db     *sql.DB
}

type UserServiceInterface interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	RefreshToken(tokenString string) (string, time.Time, error)
	Identify(ctx context.Context, userID int) (auth.Identity, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUsers(ctx context.Context, creds []Credential) ([]int, error)
}

func NewUserService(repo UserRepositoryInterface, tokens auth.TokenServiceInterface, db *sql.DB) UserServiceInterface {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		db:     db,
	}
}

// Authenticate checks username and password. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			auth.CompareDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.ComparePasswordHash([]byte(user.Password), password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates the user and issues an access token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", time.Time{}, err
	}

	token, expiresAt, err := s.tokens.Issue(auth.Subject{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.Roles,
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to issue token")
		return "", time.Time{}, err
	}

	logrus.WithField("user_id", user.ID).Info("User logged in")
	return token, expiresAt, nil
}

func (s *UserService) RefreshToken(tokenString string) (string, time.Time, error) {
	return s.tokens.Refresh(tokenString)
}

// Identify loads the current user record for a validated token subject.
func (s *UserService) Identify(ctx context.Context, userID int) (auth.Identity, error) {
	user, err := s.repo.GetByID(ctx, s.db, userID)
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.Roles,
	}, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, s.db, username)
}

// CreateUsers hashes and inserts all credentials in one transaction. Either
// every user is created or none is.
func (s *UserService) CreateUsers(ctx context.Context, creds []Credential) ([]int, error) {
	users := make([]*User, 0, len(creds))
	for _, c := range creds {
		hashed, err := auth.GeneratePasswordHash(c.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", c.Username, err)
		}
		users = append(users, &User{Username: c.Username, Password: hashed, Roles: c.Roles})
	}

	ids := make([]int, 0, len(users))
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		for _, u := range users {
			id, err := s.repo.Create(ctx, tx, u)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// ParseSeedSpec parses "name:password[:role|role],..." into credentials.
func ParseSeedSpec(spec string) ([]Credential, error) {
	var creds []Credential
	seen := make(map[string]bool)

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid user entry %q: want name:password[:roles]", entry)
		}

		c := Credential{Username: strings.TrimSpace(parts[0]), Password: parts[1]}
		if c.Username == "" || c.Password == "" {
			return nil, fmt.Errorf("invalid user entry %q: empty name or password", entry)
		}
		if seen[c.Username] {
			return nil, fmt.Errorf("duplicate user %q", c.Username)
		}
		seen[c.Username] = true

		if len(parts) == 3 {
			for _, r := range strings.Split(parts[2], "|") {
				if r = strings.TrimSpace(r); r != "" {
					c.Roles = append(c.Roles, r)
				}
			}
		}
		creds = append(creds, c)
	}

	if len(creds) == 0 {
		return nil, errors.New("no users given")
	}
	return creds, nil
}
