package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/NordCoder/EduPortal/internal/auth"
	"github.com/NordCoder/EduPortal/internal/domain"
	domainauth "github.com/NordCoder/EduPortal/internal/domain/auth"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
)

var ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrAuthRequired)

type Config struct {
	Secret    []byte
	AccessTTL time.Duration
	Now       func() time.Time
}

type Usecase struct {
	profiles profile.Repo
	cfg      Config
}

func NewUseCase(profiles profile.Repo, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{profiles: profiles, cfg: cfg}
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// SignIn checks the password and issues an access token.
func (u *Usecase) SignIn(ctx context.Context, email, password string) (*profile.Profile, string, error) {
	p, err := u.profiles.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("sign in: %w: %w", domain.ErrQuery, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := u.issue(p)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

func (u *Usecase) issue(p *profile.Profile) (string, error) {
	now := u.cfg.Now()
	claims := domainauth.AccessClaims{
		Sub:  strconv.FormatInt(p.ID, 10),
		Role: p.Role,
		Iat:  now.Unix(),
		Exp:  now.Add(u.cfg.AccessTTL).Unix(),
	}
	token, err := auth.SignedString(claims, u.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign access: %w", err)
	}
	return token, nil
}

// ParseAccess turns a bearer token into the caller identity.
func (u *Usecase) ParseAccess(token string) (domainauth.Identity, error) {
	cl, err := auth.ParseAndValidate(token, u.cfg.Secret, u.cfg.Now())
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
	}
	id, err := strconv.ParseInt(cl.Sub, 10, 64)
	if err != nil || id <= 0 || !cl.Role.Valid() {
		return domainauth.Identity{}, fmt.Errorf("%w: bad claims", domain.ErrAuthRequired)
	}
	return domainauth.Identity{ID: id, Role: cl.Role}, nil
}

// Require returns the caller identity when it holds one of roles. No roles
// means any signed-in caller.
func Require(ctx context.Context, roles ...profile.Role) (domainauth.Identity, error) {
	id, ok := auth.IdentityFromCtx(ctx)
	if !ok {
		return domainauth.Identity{}, domain.ErrAuthRequired
	}
	if len(roles) > 0 && !id.Is(roles...) {
		return domainauth.Identity{}, domain.ErrForbidden
	}
	return id, nil
}
