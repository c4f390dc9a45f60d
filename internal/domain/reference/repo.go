package reference

import "context"

type Repository interface {
	GetDoctor(ctx context.Context, id string) (*Doctor, error)
	ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListDiseases(ctx context.Context, limit, offset int) ([]*Disease, int, error)
}
