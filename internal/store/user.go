package store

import (
	"database/sql"
	"fmt"

	"github.com/offtimeapp/offtime/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var profileImage sql.NullString
	err := scanner.Scan(&u.ID, &u.Username, &u.PasswordHash, &profileImage, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ProfileImage = profileImage.String
	return &u, nil
}

const userCols = `id, username, password_hash, profile_image, created_at, updated_at`

func (s *UserStore) Create(username, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("insert user: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// UsernameExists reports whether another user (excluding excludeID) already
// has the given username.
func (s *UserStore) UsernameExists(username string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM users WHERE username = ? AND id != ?`,
		username, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

func (s *UserStore) UpdateUsername(id int64, username string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET username = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		username, id,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("update username: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("update username: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) UpdatePassword(id int64, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateProfileImage(id int64, filename string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET profile_image = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		filename, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile image: %w", err)
	}
	return s.GetByID(id)
}
