package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"hirelane/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userColumns = `id, name, phone, email, role, company_name,
	address, city, state, postal_code, skills, experience, is_active,
	created_at, updated_at`

func scanUser(row rowScanner) (*store.User, error) {
	var (
		u           store.User
		email       sql.NullString
		companyName sql.NullString
		address     sql.NullString
		city        sql.NullString
		state       sql.NullString
		postalCode  sql.NullString
		skills      []string
	)

	err := row.Scan(
		&u.ID, &u.Name, &u.Phone, &email, &u.Role, &companyName,
		&address, &city, &state, &postalCode, pq.Array(&skills), &u.Experience, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Email = email.String
	u.CompanyName = companyName.String
	u.Location = store.Location{
		Address:    address.String,
		City:       city.String,
		State:      state.String,
		PostalCode: postalCode.String,
	}
	u.Skills = skills
	if u.Skills == nil {
		u.Skills = []string{}
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, tx store.DBTransaction, user *store.User) error {
	query := `
		INSERT INTO users (id, name, phone, email, role, company_name, address, city, state, postal_code, skills, experience, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	skills := user.Skills
	if skills == nil {
		skills = []string{}
	}
	experience := user.Experience
	if experience == "" {
		experience = store.ExperienceFresher
	}

	_, err := s.getExecutor(tx).ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Phone,
		nullString(user.Email),
		user.Role,
		nullString(user.CompanyName),
		nullString(user.Location.Address),
		nullString(user.Location.City),
		nullString(user.Location.State),
		nullString(user.Location.PostalCode),
		pq.Array(skills),
		experience,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*store.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE phone = $1", phone))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetUserByAPIKeyHash only resolves active users.
func (s *Store) GetUserByAPIKeyHash(ctx context.Context, hash string) (*store.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE api_key_hash = $1 AND is_active", hash))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Store) SetAPIKeyHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET api_key_hash = $1, updated_at = NOW() WHERE id = $2",
		nullString(hash), id)
	if err != nil {
		return fmt.Errorf("failed to set api key for user %s: %w", id, err)
	}
	return expectOneRow(res)
}
