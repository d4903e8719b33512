package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prodhub/productivity-hub/internal/model"
	"github.com/prodhub/productivity-hub/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,password_hash,email_verified,email_verification_token,email_verification_expires,created_at,updated_at"

// Create inserts an unverified user with a pending verification token and
// returns the stored record. The password is hashed here so callers never
// handle hashes directly.
func (r *UserRepo) Create(ctx context.Context, email, name, password string, cost int, token utils.VerificationToken) (model.User, error) {
	email = utils.NormalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, email_verified,
		   email_verification_token, email_verification_expires)
		 VALUES (?,?,?,?,FALSE,?,?)`,
		id, email, name, hash, token.Value, token.Exp)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// GetByEmail fetches a user by normalized email. Returns ErrNotFound when
// no account exists; callers doing credential checks must fold that into
// the same response as a wrong password.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = utils.NormalizeEmail(email)
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByVerificationToken fetches the user owning a pending verification
// token. Lookup is by exact token value.
func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (model.User, error) {
	return r.getOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE email_verification_token=? LIMIT 1", token)
}

// MarkVerified flips the user to verified and clears the token columns.
// The transition is one way; it is a no-op for already verified users.
func (r *UserRepo) MarkVerified(ctx context.Context, id string) (model.User, error) {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET email_verified=TRUE, email_verification_token=NULL,
		   email_verification_expires=NULL, updated_at=NOW()
		 WHERE id=?`, id)
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	var (
		u      model.User
		token  sql.NullString
		expiry sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.EmailVerified,
		&token, &expiry, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if token.Valid {
		u.VerificationToken = token.String
	}
	if expiry.Valid {
		u.VerificationExpiry = expiry.Time
	} else {
		u.VerificationExpiry = time.Time{}
	}
	return u, nil
}
