package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/guard"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// PostgresStore implements Store against the application's own players table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore over the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EmailExists reports whether a player row with the normalized email exists.
func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM players WHERE email = $1)`
	if err := s.db.QueryRow(ctx, query, guard.NormalizeEmail(email)).Scan(&exists); err != nil {
		return false, apperror.NewDatabaseError("failed to check email existence", err)
	}
	return exists, nil
}

// Insert stores a new player row and returns it with its id and timestamps.
func (s *PostgresStore) Insert(ctx context.Context, row *Row) (*Row, error) {
	query := `INSERT INTO players (identity_id, name, email, password, role)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at, updated_at`
	err := s.db.QueryRow(ctx, query,
		row.IdentityID, row.Name, guard.NormalizeEmail(row.Email), row.Password, row.Role,
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, apperror.NewConflictError("Email already exists", nil)
		}
		return nil, apperror.NewDatabaseError("failed to insert player", err)
	}
	return row, nil
}

// GetByIdentity fetches the player row for an identity id.
func (s *PostgresStore) GetByIdentity(ctx context.Context, identityID string) (*Row, error) {
	var row Row
	query := `SELECT id, identity_id, name, email, password, role, created_at, updated_at
	          FROM players WHERE identity_id = $1`
	err := s.db.QueryRow(ctx, query, identityID).Scan(
		&row.ID, &row.IdentityID, &row.Name, &row.Email, &row.Password, &row.Role, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("player not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get player", err)
	}
	return &row, nil
}

// UpdateProfile applies a partial update and returns the updated row.
func (s *PostgresStore) UpdateProfile(ctx context.Context, identityID string, changes ProfileUpdate) (*Row, error) {
	setParts := []string{"updated_at = now()"}
	args := []interface{}{identityID}

	if changes.Name != nil {
		args = append(args, *changes.Name)
		setParts = append(setParts, fmt.Sprintf("name = $%d", len(args)))
	}
	if changes.Role != nil {
		args = append(args, *changes.Role)
		setParts = append(setParts, fmt.Sprintf("role = $%d", len(args)))
	}

	query := fmt.Sprintf(`UPDATE players SET %s WHERE identity_id = $1
	          RETURNING id, identity_id, name, email, password, role, created_at, updated_at`,
		strings.Join(setParts, ", "))

	var row Row
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&row.ID, &row.IdentityID, &row.Name, &row.Email, &row.Password, &row.Role, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("player not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to update player", err)
	}
	return &row, nil
}

// interface guard
var _ Store = (*PostgresStore)(nil)
