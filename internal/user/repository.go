package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo_api/internal/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
)

const uniqueViolation = "23505"

type UserRepository struct{}

type UserRepositoryInterface interface {
	Create(ctx context.Context, db utils.DBTX, user *User) (int, error)
	GetByID(ctx context.Context, db utils.DBTX, id int) (*User, error)
	GetByUsername(ctx context.Context, db utils.DBTX, username string) (*User, error)
}

func NewUserRepository() UserRepositoryInterface {
	return &UserRepository{}
}

// Create inserts a user and returns the assigned id.
func (r *UserRepository) Create(ctx context.Context, db utils.DBTX, user *User) (int, error) {
	query := `
		INSERT INTO users (
			username, password, roles, created_at
		)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`

	var id int
	err := db.QueryRowContext(ctx, query,
		user.Username,
		user.Password,
		joinRoles(user.Roles),
	).Scan(&id)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			logrus.WithField("username", user.Username).Warn("Username already exists")
			return 0, fmt.Errorf("create user %q: %w", user.Username, ErrUsernameTaken)
		}
		logrus.WithError(err).Error("Failed to create user")
		return 0, fmt.Errorf("create user %q: %w", user.Username, err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  id,
		"username": user.Username,
	}).Info("User created successfully")

	return id, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, db utils.DBTX, id int) (*User, error) {
	query := `
		SELECT id, username, password, roles, created_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logrus.WithField("user_id", id).Warn("User not found")
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).Error("Failed to get user by ID")
		return nil, err
	}

	return user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, db utils.DBTX, username string) (*User, error) {
	query := `
		SELECT id, username, password, roles, created_at
		FROM users
		WHERE username = $1
	`

	user, err := scanUser(db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logrus.WithField("username", username).Warn("User not found")
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).Error("Failed to get user by username")
		return nil, err
	}

	return user, nil
}

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var roles string
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&roles,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	user.Roles = splitRoles(roles)
	return user, nil
}
