package material

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Service implements material catalog operations.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new material service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger.Named("material")}
}

// Create adds a catalog entry.
func (s *Service) Create(ctx context.Context, req *CreateMaterialRequest) (*Material, error) {
	kind := Kind(req.Kind)
	if !kind.Valid() {
		return nil, apperrors.BadRequest("unknown material kind")
	}

	m := &Material{
		ID:           uuid.New(),
		Kind:         kind,
		Name:         req.Name,
		Description:  req.Description,
		TaskTypes:    req.TaskTypes,
		Tags:         req.Tags,
		PreviewURL:   req.PreviewURL,
		Enabled:      true,
		DisplayOrder: req.DisplayOrder,
	}
	if req.Payload != nil {
		raw, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, apperrors.BadRequest("payload must be JSON serializable")
		}
		m.Payload = datatypes.JSON(raw)
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("material created",
		zap.String("id", m.ID.String()),
		zap.String("kind", string(m.Kind)),
		zap.String("name", m.Name))
	return m, nil
}

// Get returns one catalog entry.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Material, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns enabled catalog entries matching the filter.
func (s *Service) List(ctx context.Context, filter Filter, p *pagination.Pagination) ([]*Material, int64, error) {
	return s.repo.List(ctx, filter, p)
}
