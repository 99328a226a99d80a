package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mansoora/rehaish/internal/models"
)

// ErrDuplicateEmail is returned when a registration reuses an existing email.
var ErrDuplicateEmail = errors.New("email already registered")

// userColumns is the persisted schema of the users table.
var userColumns = []string{
	"id", "full_name", "email", "phone", "password", "user_type", "created_at",
}

// NewUser carries the caller-supplied fields of an account to be created.
type NewUser struct {
	FullName string
	Email    string
	Phone    string
	Password string
	UserType string
}

// UserRepository defines the interface for account data access operations.
// Backed by a single CSV file rewritten in full on every mutation, like the
// listings table.
type UserRepository interface {
	// Create appends a new account. Email uniqueness is enforced with a full
	// scan under the store lock; on conflict the table is left unchanged and
	// ErrDuplicateEmail is returned.
	Create(ctx context.Context, input NewUser) (models.User, error)

	// FindByEmail returns nil, nil when no account matches (not an error).
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// csvUserRepository is the concrete CSV-file-backed implementation.
type csvUserRepository struct {
	now  func() time.Time
	path string
	mu   sync.Mutex
}

// NewUserRepository creates a UserRepository backed by the CSV file at path.
func NewUserRepository(path string) UserRepository {
	return &csvUserRepository{path: path, now: time.Now}
}

func (r *csvUserRepository) Create(ctx context.Context, input NewUser) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadLocked()
	if err != nil {
		return models.User{}, err
	}

	for i := range users {
		if users[i].Email == input.Email {
			return models.User{}, fmt.Errorf("user %s: %w", input.Email, ErrDuplicateEmail)
		}
	}

	user := models.User{
		ID:        len(users) + 1,
		FullName:  input.FullName,
		Email:     input.Email,
		Phone:     input.Phone,
		Password:  input.Password,
		UserType:  input.UserType,
		CreatedAt: r.now().UTC().Truncate(time.Second),
	}

	users = append(users, user)
	if err := r.persistLocked(users); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *csvUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadLocked()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (r *csvUserRepository) loadLocked() ([]models.User, error) {
	header, rows, err := readTable(r.path)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, nil
	}

	idx := columnIndex(header)
	users := make([]models.User, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(field(row, idx, "id"))
		if err != nil {
			return nil, fmt.Errorf("users table %s row %d: invalid id: %w", r.path, i+1, err)
		}
		createdAt, err := time.Parse(time.RFC3339, field(row, idx, "created_at"))
		if err != nil {
			return nil, fmt.Errorf("users table %s row %d: invalid created_at: %w", r.path, i+1, err)
		}
		users = append(users, models.User{
			ID:        id,
			FullName:  field(row, idx, "full_name"),
			Email:     field(row, idx, "email"),
			Phone:     field(row, idx, "phone"),
			Password:  field(row, idx, "password"),
			UserType:  field(row, idx, "user_type"),
			CreatedAt: createdAt,
		})
	}
	return users, nil
}

func (r *csvUserRepository) persistLocked(users []models.User) error {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.Itoa(u.ID),
			u.FullName,
			u.Email,
			u.Phone,
			u.Password,
			u.UserType,
			u.CreatedAt.Format(time.RFC3339),
		})
	}
	return writeTableAtomic(r.path, userColumns, rows)
}
