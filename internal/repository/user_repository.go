package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
)

const userColumns = "id,email,password_hash,name,role,is_active,last_login,failed_login_attempts,lock_until,created_at,updated_at"

// UserRepo is the MySQL implementation of UserRepository.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u with a fresh UUID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		id, u.Email, u.PasswordHash, u.Name, string(u.Role), u.IsActive, nullTime(u.LastLogin),
		u.FailedLoginAttempts, nullTime(u.LockUntil), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapMySQLError(err)
	}
	u.ID = id
	return nil
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// Save updates every mutable column of u.
func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET email=?, password_hash=?, name=?, role=?, is_active=?, last_login=?,
		 failed_login_attempts=?, lock_until=?, updated_at=? WHERE id=?`,
		u.Email, u.PasswordHash, u.Name, string(u.Role), u.IsActive, nullTime(u.LastLogin),
		u.FailedLoginAttempts, nullTime(u.LockUntil), u.UpdatedAt, u.ID)
	if err != nil {
		return mapMySQLError(err)
	}
	return requireAffected(res)
}

// Delete removes the user row.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u         model.User
		role      string
		lastLogin sql.NullTime
		lockUntil sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.IsActive, &lastLogin,
		&u.FailedLoginAttempts, &lockUntil, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = model.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if lockUntil.Valid {
		t := lockUntil.Time
		u.LockUntil = &t
	}
	return &u, nil
}

// requireAffected turns an UPDATE/DELETE that matched nothing into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// mapMySQLError translates duplicate-key violations (error 1062) into
// ErrEmailExists; email is the only unique column besides the key.
func mapMySQLError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return ErrEmailExists
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// nullTime is used where a nil *time.Time must reach the driver as NULL.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
