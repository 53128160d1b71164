package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/domain/realtime"
	"github.com/NordCoder/EduPortal/internal/obs"
	"github.com/NordCoder/EduPortal/internal/services/api-gateway/auth"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Validator interface {
	Struct(s any) error
}

type Welcomer interface {
	SendWelcome(ctx context.Context, p *profile.Profile) bool
}

type Usecase struct {
	tx       Transactor
	profiles profile.Repo
	events   realtime.Publisher
	welcome  Welcomer
	validate Validator
	log      *zap.Logger
}

func NewUsecase(tx Transactor, profiles profile.Repo, events realtime.Publisher, welcome Welcomer, validate Validator, log *zap.Logger) *Usecase {
	return &Usecase{
		tx:       tx,
		profiles: profiles,
		events:   events,
		welcome:  welcome,
		validate: validate,
		log:      obs.Component(log, "profile.uc"),
	}
}

// Create stores a profile and its change event in one transaction, then
// sends the welcome message. A failed welcome does not fail the call.
func (u *Usecase) Create(ctx context.Context, in profile.NewProfile) (*profile.Profile, error) {
	if err := u.validate.Struct(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	p := &profile.Profile{
		FullName: in.FullName,
		Email:    auth.NormalizeEmail(in.Email),
		Phone:    in.Phone,
		Role:     in.Role,
		Password: hash,
	}

	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.profiles.Create(ctx, p); err != nil {
			return err
		}
		return u.events.PublishChange(ctx, realtime.ChangeEvent{
			Table: "profiles",
			Op:    realtime.OpInsert,
			Row: map[string]any{
				"id":        p.ID,
				"full_name": p.FullName,
				"role":      string(p.Role),
			},
			At: time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, queryErr(err)
	}

	if !u.welcome.SendWelcome(ctx, p) {
		obs.WithTrace(ctx, u.log).Warn("welcome not delivered", zap.Int64("profile_id", p.ID))
	}
	return p, nil
}

func queryErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return fmt.Errorf("create profile: email already registered: %w", domain.ErrConflict)
	case errors.Is(err, domain.ErrValidation):
		return fmt.Errorf("create profile: %w", err)
	}
	return fmt.Errorf("create profile: %w: %w", domain.ErrQuery, err)
}
