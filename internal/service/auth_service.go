package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"clinic-gatekeeper/internal/event"
	"clinic-gatekeeper/internal/model"
	"clinic-gatekeeper/internal/repository"
	"clinic-gatekeeper/internal/token"
	"clinic-gatekeeper/pkg/apierror"
)

type tokenIssuer interface {
	Issue(claims token.Claims) (string, error)
}

type signInObserver interface {
	ObserveSignIn(result string)
}

// AuthService verifies staff passwords and mints the access/refresh pair the
// gatekeeper later consumes.
type AuthService struct {
	users   repository.UserStore
	access  tokenIssuer
	refresh tokenIssuer
	events  event.Publisher
	metrics signInObserver

	bcryptCost int
	now        func() time.Time
	compare    func(hash []byte, password []byte) error

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(users repository.UserStore, access tokenIssuer, refresh tokenIssuer, events event.Publisher) *AuthService {
	return &AuthService{
		users:      users,
		access:     access,
		refresh:    refresh,
		events:     events,
		bcryptCost: 12,
		now:        time.Now,
		compare:    bcrypt.CompareHashAndPassword,
	}
}

func (s *AuthService) SetMetrics(m signInObserver) {
	s.metrics = m
}

// SignIn checks the credentials and returns a fresh token pair. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, req model.SignInRequest, ip string) (model.SessionTokens, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return model.SessionTokens{}, apierror.BadRequest("username and password are required", "")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		s.burnPasswordCheck(req.Password)
		s.signInFailed(username, ip, "unknown_user")
		return model.SessionTokens{}, invalidCredentials()
	}
	if err != nil {
		return model.SessionTokens{}, fmt.Errorf("sign in: %w", err)
	}

	if err := s.compare([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.signInFailed(username, ip, "bad_password")
		return model.SessionTokens{}, invalidCredentials()
	}

	claims := sessionClaims(user)

	accessToken, err := s.access.Issue(claims)
	if err != nil {
		return model.SessionTokens{}, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.refresh.Issue(claims)
	if err != nil {
		return model.SessionTokens{}, fmt.Errorf("issue refresh token: %w", err)
	}

	sessionUser := toSessionUser(user)
	s.observe("success")
	s.publish(event.Event{
		Type:      event.TypeSignedIn,
		ActorID:   user.ID,
		ActorName: user.Username,
		IP:        ip,
		Detail:    map[string]any{"role": user.Role},
	})
	slog.Info("staff signed in", "user_id", user.ID, "username", user.Username)

	return model.SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         sessionUser,
	}, nil
}

// SignOut only records the event; cookies are cleared by the handler and
// tokens are not tracked server-side.
func (s *AuthService) SignOut(claims token.Claims, ip string) {
	s.publish(event.Event{
		Type:      event.TypeSignedOut,
		ActorID:   claims.Subject(),
		ActorName: claims.String("username"),
		IP:        ip,
	})
}

func (s *AuthService) CreateUser(ctx context.Context, username string, displayName string, password string, role string) (model.StaffUser, error) {
	username = strings.TrimSpace(username)
	role = strings.ToLower(strings.TrimSpace(role))

	if username == "" || password == "" {
		return model.StaffUser{}, apierror.BadRequest("username and password are required", "")
	}
	if role == "" {
		role = model.RoleReceptionist
	}
	if !validRole(role) {
		return model.StaffUser{}, apierror.BadRequest("invalid role", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return model.StaffUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := model.StaffUser{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.StaffUser{}, err
	}

	return user, nil
}

// EnsureDefaultAdmin seeds an administrator when no staff account exists.
// It is a no-op when username is empty.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username string, password string) error {
	if strings.TrimSpace(username) == "" {
		return nil
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	user, err := s.CreateUser(ctx, username, "Administrator", password, model.RoleAdmin)
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	slog.Info("default administrator created", "user_id", user.ID, "username", user.Username)
	return nil
}

// burnPasswordCheck spends the same bcrypt work as a real comparison so an
// unknown username answers no faster than a wrong password.
func (s *AuthService) burnPasswordCheck(password string) {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.bcryptCost)
		if err != nil {
			slog.Error("dummy password hash failed", "error", err)
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != nil {
		_ = s.compare(s.dummyHash, []byte(password))
	}
}

func (s *AuthService) signInFailed(username string, ip string, reason string) {
	slog.Warn("sign-in rejected", "username", username, "ip", ip, "reason", reason)
	s.observe(reason)
	s.publish(event.Event{
		Type:      event.TypeSignInFailed,
		ActorName: username,
		IP:        ip,
		Detail:    map[string]any{"reason": reason},
	})
}

func (s *AuthService) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveSignIn(result)
	}
}

func (s *AuthService) publish(e event.Event) {
	if s.events != nil {
		s.events.Publish(e)
	}
}

func sessionClaims(user model.StaffUser) token.Claims {
	claims := token.Claims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
	}
	if user.DisplayName != "" {
		claims["name"] = user.DisplayName
	}
	return claims
}

func toSessionUser(user model.StaffUser) model.SessionUser {
	return model.SessionUser{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}
}

// SessionUserFromClaims rebuilds the caller's identity from token claims.
func SessionUserFromClaims(claims token.Claims) model.SessionUser {
	return model.SessionUser{
		ID:          claims.Subject(),
		Username:    claims.String("username"),
		DisplayName: claims.String("name"),
		Role:        claims.String("role"),
	}
}

func validRole(role string) bool {
	switch role {
	case model.RoleAdmin, model.RoleDoctor, model.RoleNurse, model.RoleReceptionist:
		return true
	default:
		return false
	}
}

func invalidCredentials() error {
	return apierror.Wrap(model.ErrInvalidCredentials, "UNAUTHORIZED", "invalid credentials", http.StatusUnauthorized)
}
