package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/quizcraft-go/config"
	"github.com/user/quizcraft-go/guard"
)

// Token types carried in the token_type claim.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
	pgUniqueViolation = "23505"
)

// Claims is the JWT payload issued by the local provider: the identity id in
// the subject plus a token_type discriminator.
type Claims struct {
	TokenType string `json:"token_type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// LocalProvider implements Provider against the application's own Postgres
// accounts table, for self-hosted deployments that run without the hosted
// service. Credentials are bcrypt-hashed; sessions are HS256 JWT pairs.
type LocalProvider struct {
	dbPool     *pgxpool.Pool
	authConfig config.AuthConfig
}

// NewLocalProvider creates a LocalProvider over the given pool.
func NewLocalProvider(dbPool *pgxpool.Pool, authConfig config.AuthConfig) *LocalProvider {
	return &LocalProvider{
		dbPool:     dbPool,
		authConfig: authConfig,
	}
}

// CreateAccount stores bcrypt-hashed credentials and returns the new account
// id. A duplicate email is reported as KindAlreadyRegistered, matching what
// the hosted binding would classify.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string, _ Metadata) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	var id string
	query := `INSERT INTO accounts (email, password) VALUES ($1, $2) RETURNING id`
	err = p.dbPool.QueryRow(ctx, query, guard.NormalizeEmail(email), string(hashedPassword)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", &Error{Kind: KindAlreadyRegistered, Message: "email already registered"}
		}
		return "", &Error{Kind: KindServer, Message: "failed to create account", Err: err}
	}
	return id, nil
}

// SignIn verifies credentials and issues a session. Unknown emails and wrong
// passwords both come back as KindInvalidCredentials so the response does not
// reveal which half was wrong.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var (
		id             string
		hashedPassword string
	)
	query := `SELECT id, password FROM accounts WHERE email = $1`
	err := p.dbPool.QueryRow(ctx, query, guard.NormalizeEmail(email)).Scan(&id, &hashedPassword)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
		}
		return nil, &Error{Kind: KindServer, Message: "failed to look up account", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return nil, &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	}

	return p.generateSession(id)
}

// Refresh validates a refresh token and issues a new session. The refresh
// token is rotated alongside the access token.
func (p *LocalProvider) Refresh(_ context.Context, refreshToken string) (*Session, error) {
	claims, err := p.validateToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, &Error{Kind: KindInvalidCredentials, Message: "invalid refresh token", Err: err}
	}
	return p.generateSession(claims.Subject)
}

// DeleteAccount removes an account row. Deleting an id that no longer exists
// is not an error; the compensating caller only cares that the row is gone.
func (p *LocalProvider) DeleteAccount(ctx context.Context, id string) error {
	_, err := p.dbPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return &Error{Kind: KindServer, Message: "failed to delete account", Err: err}
	}
	return nil
}

// generateSession creates the access/refresh token pair for an account.
func (p *LocalProvider) generateSession(accountID string) (*Session, error) {
	accessToken, accessExpiresAt, err := p.generateSpecificToken(accountID, tokenTypeAccess, p.authConfig.AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, _, err := p.generateSpecificToken(accountID, tokenTypeRefresh, p.authConfig.RefreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(accessExpiresAt).Seconds()),
	}, nil
}

// generateSpecificToken creates a JWT with the given type and duration.
func (p *LocalProvider) generateSpecificToken(accountID, tokenType string, duration time.Duration) (string, time.Time, error) {
	expirationTime := time.Now().Add(duration)
	claims := &Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "quizcraft",
			Subject:   accountID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(p.authConfig.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// validateToken parses a JWT string and checks its signature, validity, and
// expected token type.
func (p *LocalProvider) validateToken(tokenString, expectedTokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.authConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is invalid")
	}
	if claims.TokenType != expectedTokenType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", expectedTokenType, claims.TokenType)
	}
	return claims, nil
}

// interface guard
var _ Provider = (*LocalProvider)(nil)
