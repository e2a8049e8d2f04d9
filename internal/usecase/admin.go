package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
	"github.com/fairyhunter13/talentfinder/internal/domain"
)

// StatusOffline is shown for stores that could not be reached.
const StatusOffline = "Offline"

// AdminService backs the resume store panel.
type AdminService struct {
	api domain.AdminAPI
}

func NewAdminService(api domain.AdminAPI) AdminService { return AdminService{api: api} }

// Status returns the store summary. When the backend cannot be reached both
// stores are reported offline and the error is returned alongside.
func (s AdminService) Status(ctx context.Context) (domain.AdminStatus, error) {
	st, err := s.api.AdminStatus(ctx)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("admin status unavailable", slog.Any("error", err))
		return domain.AdminStatus{DBStatus: StatusOffline, QdrantStatus: StatusOffline}, fmt.Errorf("op=usecase.AdminStatus: %w", err)
	}
	return st, nil
}

// ClearResumes deletes every stored resume and returns the refreshed status.
func (s AdminService) ClearResumes(ctx context.Context) (domain.AdminStatus, error) {
	if err := s.api.ClearResumes(ctx); err != nil {
		return domain.AdminStatus{}, fmt.Errorf("op=usecase.ClearResumes: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("resumes cleared")
	return s.Status(ctx)
}
