package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/store"
)

// profileColumns is the ordered list of columns selected in profile queries.
// Must match the scan order in scanProfile.
const profileColumns = `id, email, picture, is_admin, created_at`

// scanProfile scans a sql.Row (or sql.Rows via its Scan method) into a domain.Profile.
func scanProfile(scanner interface{ Scan(dest ...any) error }) (*domain.Profile, error) {
	var (
		p         domain.Profile
		isAdmin   int
		createdAt string
	)

	if err := scanner.Scan(&p.ID, &p.Email, &p.Picture, &isAdmin, &createdAt); err != nil {
		return nil, err
	}

	var err error
	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.IsAdmin = isAdmin != 0
	return &p, nil
}

// EnsureProfile inserts the profile unless one with the same ID exists, and
// returns the stored row. Returns store.ErrAlreadyExists when the email
// belongs to another profile.
func (s *Store) EnsureProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, picture, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		p.ID, p.Email, p.Picture, boolToInt(p.IsAdmin), formatTime(createdAt))
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return s.GetProfile(ctx, p.ID)
}

// GetProfile retrieves a profile by ID.
// Returns store.ErrNotFound if the profile does not exist.
func (s *Store) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfileByEmail retrieves a profile by email, case-insensitively.
// Returns store.ErrNotFound if no profile uses the email.
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfilePicture sets the profile picture URL.
// Returns store.ErrNotFound if the profile does not exist.
func (s *Store) UpdateProfilePicture(ctx context.Context, id, picture string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE profiles SET picture = ? WHERE id = ?`, picture, id)
	if err != nil {
		return mapConstraintError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
