package repository

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	identity "github.com/identityforge/go-identity"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CredentialStore is the bun-backed identity provider: lookup by
// identifier (id, email, or username), bcrypt comparison, and the cheap
// id-based lookup the request interceptor uses to resolve roles.
type CredentialStore struct {
	repo   repository.Repository[*User]
	db     *bun.DB
	logger identity.Logger
}

var _ identity.IdentityProvider = (*CredentialStore)(nil)

// NewCredentialStore creates a store over the given bun DB.
func NewCredentialStore(db *bun.DB) *CredentialStore {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &CredentialStore{
		repo: repo,
		db:   db,
	}
}

// WithLogger sets the store logger.
func (s *CredentialStore) WithLogger(logger identity.Logger) *CredentialStore {
	s.logger = logger
	return s
}

// dummyHash keeps the unknown-identifier path as expensive as a real
// comparison, so response timing does not reveal whether an account exists.
var dummyHash = identity.RandomPasswordHash()

// VerifyIdentity finds the principal by identifier and compares the
// submitted password against the stored hash. Unknown identifiers and
// wrong passwords are indistinguishable in the returned error, and a
// dummy compare keeps them indistinguishable in timing too.
func (s *CredentialStore) VerifyIdentity(ctx context.Context, identifier, password string) (identity.Identity, error) {
	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			_ = identity.ComparePasswordAndHash(password, dummyHash)
			return nil, identity.ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := identity.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, identity.ErrMismatchedHashAndPassword
	}

	if err := s.trackSuccessfulLogin(ctx, user); err != nil && s.logger != nil {
		s.logger.Error("failed to track successful login", "error", err)
	}

	return userIdentity{user: user}, nil
}

// FindIdentityByID resolves a principal by its id.
func (s *CredentialStore) FindIdentityByID(ctx context.Context, id string) (identity.Identity, error) {
	user, err := s.findByIdentifier(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, identity.ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user by id")
	}

	return userIdentity{user: user}, nil
}

// CreateUser hashes the password and inserts the account. It exists for
// fixtures and bootstrap flows; full account management is out of scope.
func (s *CredentialStore) CreateUser(ctx context.Context, username, email, password, role string) (*User, error) {
	hash, err := identity.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	return s.repo.Create(ctx, user)
}

// trackSuccessfulLogin stamps loggedin_at; raw SQL to avoid touching the
// rest of the row.
func (s *CredentialStore) trackSuccessfulLogin(ctx context.Context, user *User) error {
	loggedInAt := time.Now()
	_, err := s.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET "loggedin_at" = ?
		WHERE ("usr".id = ?) AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

type identifierOption struct {
	column string
	value  string
}

// findByIdentifier tries id, email, then username columns depending on
// the identifier's shape.
func (s *CredentialStore) findByIdentifier(ctx context.Context, identifier string) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"identifier": identifier,
			})
	}

	for _, opt := range options {
		record := &User{}
		err := s.db.NewSelect().Model(record).
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{column: "id", value: trimmed})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{column: "email", value: trimmed})
	}

	options = append(options, identifierOption{column: "username", value: trimmed})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
