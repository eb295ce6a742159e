package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/apperr"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/oauth2"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	msgEmailTaken    = "User with this email already exists"
	msgUsernameTaken = "Username already taken"
	msgOwnAccount    = "You can only modify your own account"
	msgAdminOnly     = "Only administrators can change role or status"
)

// RegisterInput carries a new account. Role and Status are honored only
// when the caller is an admin.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      entities.UserRole
	Status    entities.UserStatus
	Phone     string
	Address   string
	City      string
}

// UserChanges is a partial update; nil fields are left untouched.
type UserChanges struct {
	Username  *string
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Role      *entities.UserRole
	Status    *entities.UserStatus
	Phone     *string
	Address   *string
	City      *string
}

// Service handles authentication and user management.
type Service struct {
	db     *gorm.DB
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

func (s *Service) repo(ctx context.Context) *users.Repository {
	return users.NewRepository(s.db.WithContext(ctx))
}

// NormalizeEmail lowercases and trims an address before it is stored or
// compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) ListUsers(ctx context.Context) ([]entities.User, error) {
	return s.repo(ctx).List()
}

// GetUser returns the user or a NotFound error naming id.
func (s *Service) GetUser(ctx context.Context, id string) (*entities.User, error) {
	user, err := s.repo(ctx).GetByID(id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFoundID("User", id)
		}
		return nil, err
	}
	return user, nil
}

// GetUserByID resolves a session principal. A missing user yields
// ErrUserNotFound.
func (s *Service) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	user, err := s.repo(ctx).GetByID(id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Register creates a password account. actor is the signed-in caller, or nil
// for public registration.
func (s *Service) Register(ctx context.Context, actor *entities.User, in RegisterInput) (*entities.User, error) {
	role, status := entities.RoleMember, entities.StatusActive
	if actor != nil && actor.IsAdmin() {
		if in.Role != "" {
			role = in.Role
		}
		if in.Status != "" {
			status = in.Status
		}
	}
	return s.insert(ctx, in, role, status)
}

// CreateAdmin bootstraps an administrator account from the command line.
func (s *Service) CreateAdmin(ctx context.Context, in RegisterInput) (*entities.User, error) {
	return s.insert(ctx, in, entities.RoleAdmin, entities.StatusActive)
}

func (s *Service) insert(ctx context.Context, in RegisterInput, role entities.UserRole, status entities.UserStatus) (*entities.User, error) {
	hash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, apperr.Validation("Validation failed", apperr.FieldError{Field: "password", Message: err.Error()})
	}

	user := &entities.User{
		Username:       strings.TrimSpace(in.Username),
		Email:          NormalizeEmail(in.Email),
		PasswordHash:   hash,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Role:           role,
		Status:         status,
		MembershipDate: s.now(),
		Phone:          in.Phone,
		Address:        in.Address,
		City:           in.City,
	}

	err = database.Transaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		if err := checkUnique(repo, user.Email, user.Username, ""); err != nil {
			return err
		}
		return translateUserWrite(repo.Create(user))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies changes on behalf of actor. Members may only edit
// themselves and never their own role or status.
func (s *Service) UpdateUser(ctx context.Context, actor *entities.User, id string, ch UserChanges) (*entities.User, error) {
	if err := authorizeSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (ch.Role != nil || ch.Status != nil) {
		return nil, apperr.Forbidden(msgAdminOnly)
	}

	updates := map[string]interface{}{}
	var email, username string
	if ch.Email != nil {
		email = NormalizeEmail(*ch.Email)
		updates["email"] = email
	}
	if ch.Username != nil {
		username = strings.TrimSpace(*ch.Username)
		updates["username"] = username
	}
	if ch.Password != nil {
		hash, err := HashPassword(*ch.Password, s.config.BcryptCost)
		if err != nil {
			return nil, apperr.Validation("Validation failed", apperr.FieldError{Field: "password", Message: err.Error()})
		}
		updates["password_hash"] = hash
	}
	setString(updates, "first_name", ch.FirstName)
	setString(updates, "last_name", ch.LastName)
	setString(updates, "phone", ch.Phone)
	setString(updates, "address", ch.Address)
	setString(updates, "city", ch.City)
	if ch.Role != nil {
		updates["role"] = *ch.Role
	}
	if ch.Status != nil {
		updates["status"] = *ch.Status
	}

	var user *entities.User
	err := database.Transaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		if _, err := repo.GetByID(id); err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFoundID("User", id)
			}
			return err
		}
		if err := checkUnique(repo, email, username, id); err != nil {
			return err
		}
		if len(updates) > 0 {
			if _, err := repo.Update(id, updates); err != nil {
				return translateUserWrite(err)
			}
		}
		var err error
		user, err = repo.GetByID(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account on behalf of actor. Loans referencing the
// user are left in place.
func (s *Service) DeleteUser(ctx context.Context, actor *entities.User, id string) error {
	if err := authorizeSelfOrAdmin(actor, id); err != nil {
		return err
	}
	deleted, err := s.repo(ctx).Delete(id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return apperr.NotFoundID("User", id)
	}
	return nil
}

// Authenticate validates a username-or-email and password pair.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*entities.User, error) {
	repo := s.repo(ctx)
	login = strings.TrimSpace(login)

	user, err := repo.GetByLogin(login)
	if database.IsNotFound(err) && strings.Contains(login, "@") {
		user, err = repo.GetByEmail(NormalizeEmail(login))
	}
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// SignInWithProfile resolves the account for an OAuth identity: by external
// id first, then by email (linking the identity), otherwise a new member
// account is created.
//
// Linking by email only happens when the provider vouches for the address,
// unless LinkUnverifiedEmail is configured. An unverified collision is
// reported as a conflict instead of silently taking over the account.
func (s *Service) SignInWithProfile(ctx context.Context, p *oauth2.Profile) (*entities.User, error) {
	externalID := p.ExternalID()
	email := NormalizeEmail(p.Email)

	var user *entities.User
	err := database.Transaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)

		existing, err := repo.GetByExternalID(externalID)
		if err == nil {
			user = existing
			return nil
		}
		if !database.IsNotFound(err) {
			return err
		}

		if email != "" {
			existing, err = repo.GetByEmail(email)
			if err == nil {
				if !p.EmailVerified && !s.config.LinkUnverifiedEmail {
					return apperr.Conflict("An account with this email already exists")
				}
				if _, err := repo.Update(existing.ID, map[string]interface{}{"external_id": externalID}); err != nil {
					return err
				}
				existing.ExternalID = &externalID
				user = existing
				return nil
			}
			if !database.IsNotFound(err) {
				return err
			}
		}

		user, err = s.newOAuthUser(repo, p, email, externalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) newOAuthUser(repo *users.Repository, p *oauth2.Profile, email, externalID string) (*entities.User, error) {
	username, err := availableUsername(repo, p)
	if err != nil {
		return nil, err
	}
	if email == "" {
		email = NormalizeEmail(username + "@" + p.Provider + ".com")
	}

	firstName, lastName := splitName(p.Name)
	if firstName == "" {
		firstName = p.Login
	}

	user := &entities.User{
		Username:       username,
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
		Role:           entities.RoleMember,
		Status:         entities.StatusActive,
		MembershipDate: s.now(),
		ExternalID:     &externalID,
	}
	if err := repo.Create(user); err != nil {
		return nil, translateUserWrite(err)
	}
	return user, nil
}

// availableUsername derives a username from the provider login, falling back
// to one built from the provider account id when the login is taken.
func availableUsername(repo *users.Repository, p *oauth2.Profile) (string, error) {
	candidates := []string{
		sanitizeUsername(p.Login),
		sanitizeUsername(p.Provider + "_" + p.ID),
	}
	for _, candidate := range candidates {
		if len(candidate) < 3 {
			continue
		}
		taken, err := repo.UsernameTaken(candidate, "")
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperr.Duplicate("username", msgUsernameTaken)
}

func sanitizeUsername(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == '.':
			b.WriteRune('_')
		}
	}
	name := b.String()
	if len(name) > 30 {
		name = name[:30]
	}
	return name
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	count, err := s.repo(ctx).Count()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func authorizeSelfOrAdmin(actor *entities.User, id string) error {
	if actor == nil {
		return apperr.Unauthorized(msgUnauthorized)
	}
	if !actor.IsAdmin() && actor.ID != id {
		return apperr.Forbidden(msgOwnAccount)
	}
	return nil
}

func checkUnique(repo *users.Repository, email, username, exceptID string) error {
	if email != "" {
		taken, err := repo.EmailTaken(email, exceptID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Duplicate("email", msgEmailTaken)
		}
	}
	if username != "" {
		taken, err := repo.UsernameTaken(username, exceptID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Duplicate("username", msgUsernameTaken)
		}
	}
	return nil
}

// translateUserWrite covers the race where a concurrent insert wins between
// the uniqueness check and the write.
func translateUserWrite(err error) error {
	if err == nil {
		return nil
	}
	column, ok := database.DuplicateField(err)
	if !ok {
		return err
	}
	switch column {
	case "email":
		return apperr.Duplicate("email", msgEmailTaken)
	case "username":
		return apperr.Duplicate("username", msgUsernameTaken)
	case "external_id":
		return apperr.Duplicate("externalId", "This account is already linked")
	}
	return apperr.Duplicate(column, "User with this "+column+" already exists")
}

func setString(updates map[string]interface{}, column string, value *string) {
	if value != nil {
		updates[column] = strings.TrimSpace(*value)
	}
}
