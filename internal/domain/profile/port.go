package profile

import "context"

type Repo interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id int64) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	ListByRoles(ctx context.Context, roles ...Role) ([]*Profile, error)
}
