package reference

import (
	"context"

	"github.com/rs/zerolog"
)

// Service wraps the repository and serves as the doctor directory for
// notification display names.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.ListDoctors(ctx, limit, offset)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListDiseases(ctx context.Context, limit, offset int) ([]*Disease, int, error) {
	return s.repo.ListDiseases(ctx, limit, offset)
}

// DoctorName resolves a doctor's display name, returning "" when the lookup
// fails so callers can fall back to the identifier.
func (s *Service) DoctorName(ctx context.Context, id string) string {
	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		s.logger.Debug().Err(err).Str("doctor_id", id).Msg("doctor name lookup failed")
		return ""
	}
	return d.Name
}
