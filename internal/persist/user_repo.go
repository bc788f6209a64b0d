package persist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

type UserRow struct {
	ID           int32
	Username     string
	PasswordHash string
}

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*UserRow, error) {
	row := &UserRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, username, password_hash FROM users WHERE username = $1`, username,
	).Scan(&row.ID, &row.Username, &row.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id int32) (*UserRow, error) {
	row := &UserRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, username, password_hash FROM users WHERE id = $1`, id,
	).Scan(&row.ID, &row.Username, &row.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Create hashes rawPassword and inserts a new user, returning its
// assigned id.
func (r *UserRepo) Create(ctx context.Context, username, rawPassword string) (int32, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	var id int32
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, string(hash),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *UserRepo) ValidatePassword(hash, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}

// ListPage returns up to limit usernames starting at offset, ordered by
// id, optionally filtered by a case-insensitive substring search.
func (r *UserRepo) ListPage(ctx context.Context, offset, limit int32, search string) ([]UserRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, username, password_hash FROM users
		 WHERE ($3 = '' OR username ILIKE '%' || $3 || '%')
		 ORDER BY id OFFSET $1 LIMIT $2`,
		offset, limit, search,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserRow
	for rows.Next() {
		var row UserRow
		if err := rows.Scan(&row.ID, &row.Username, &row.PasswordHash); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
