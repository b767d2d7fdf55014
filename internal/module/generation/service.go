package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/vidgo/server/internal/module/generation/provider"
	"github.com/vidgo/server/internal/module/generation/routing"
	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/metrics"
	"github.com/vidgo/server/internal/utils/pagination"
)

const defaultMaxConcurrent = 8

// CreditService deducts and refunds generation credits.
type CreditService interface {
	Deduct(ctx context.Context, userID uuid.UUID, amount int64, reason string) error
	Refund(ctx context.Context, userID uuid.UUID, amount int64, reason string) error
}

// QuotaService enforces per-user daily generation caps.
type QuotaService interface {
	Allow(ctx context.Context, userID uuid.UUID, tier string) error
}

// Archiver copies vendor-hosted outputs into durable storage and returns the
// output with rewritten URLs.
type Archiver interface {
	ArchiveOutput(ctx context.Context, recordID uuid.UUID, output map[string]any) (map[string]any, error)
}

// AvatarLister exposes the talking-avatar character catalog.
type AvatarLister interface {
	ListAvatars(ctx context.Context, asianOnly bool) ([]provider.Avatar, error)
}

// ServiceConfig holds the generation service dependencies. Credits, Quota,
// Archiver and Avatars are optional; leaving one nil disables that concern.
type ServiceConfig struct {
	Repo     Repository
	Router   *routing.Router
	Credits  CreditService
	Quota    QuotaService
	Archiver Archiver
	Avatars  AvatarLister

	// Costs maps task type wire values to per-call credit cost. Task types
	// missing from the map are free.
	Costs map[string]int64
	// ModerateInputs screens text prompts through the moderation provider
	// before any credits are spent.
	ModerateInputs bool
	MaxConcurrent  int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Service runs the generation pipeline: admission, provider dispatch,
// persistence and settlement.
type Service struct {
	repo     Repository
	router   *routing.Router
	credits  CreditService
	quota    QuotaService
	archiver Archiver
	avatars  AvatarLister

	costs          map[string]int64
	moderateInputs bool

	logger  *zap.Logger
	metrics *metrics.Metrics

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewService creates a new generation service.
func NewService(cfg *ServiceConfig) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Service{
		repo:           cfg.Repo,
		router:         cfg.Router,
		credits:        cfg.Credits,
		quota:          cfg.Quota,
		archiver:       cfg.Archiver,
		avatars:        cfg.Avatars,
		costs:          cfg.Costs,
		moderateInputs: cfg.ModerateInputs,
		logger:         log.Named("generation"),
		metrics:        cfg.Metrics,
		sem:            make(chan struct{}, maxConcurrent),
	}
}

// job carries one admitted generation through the provider call.
type job struct {
	rec      *Record
	taskType provider.TaskType
	params   map[string]any
	tier     string
	cost     int64
}

// Generate runs a generation request end to end and blocks until the routed
// provider returns a terminal result.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, tier string, req *CreateGenerationRequest) (*Record, error) {
	j, err := s.prepare(ctx, userID, tier, req, StatusProcessing)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, j)
}

// GenerateAsync admits the request, persists a pending record and runs the
// provider call in the background. The returned record carries the ID the
// caller polls for the result.
func (s *Service) GenerateAsync(ctx context.Context, userID uuid.UUID, tier string, req *CreateGenerationRequest) (*Record, error) {
	j, err := s.prepare(ctx, userID, tier, req, StatusPending)
	if err != nil {
		return nil, err
	}

	// The goroutine mutates the record; hand the caller a copy.
	snapshot := *j.rec

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		defer func() { <-s.sem }()

		// The request context dies with the HTTP response; background
		// work runs on its own context.
		bgCtx := context.Background()
		j.rec.Status = StatusProcessing
		if err := s.repo.Update(bgCtx, j.rec); err != nil {
			s.logger.Error("marking generation processing failed",
				zap.String("record_id", j.rec.ID.String()),
				zap.Error(err))
		}
		if _, err := s.run(bgCtx, j); err != nil {
			s.logger.Warn("background generation failed",
				zap.String("record_id", j.rec.ID.String()),
				zap.String("task_type", j.taskType.String()),
				zap.Error(err))
		}
	}()

	return &snapshot, nil
}

// Moderate runs a standalone moderation check. It does not touch quota or
// credits and persists nothing.
func (s *Service) Moderate(ctx context.Context, prompt string) (map[string]any, error) {
	res, err := s.router.Route(ctx, provider.TaskModeration, map[string]any{"prompt": prompt}, routing.DefaultUserTier)
	if err != nil {
		return nil, mapRouterError(err)
	}
	return res.Output, nil
}

// Get returns one generation record owned by the user.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// List returns the user's generation records, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Record, int64, error) {
	return s.repo.ListByUser(ctx, userID, p)
}

// ListAvatars returns the avatar catalog, optionally narrowed to
// Asian-looking characters.
func (s *Service) ListAvatars(ctx context.Context, asianOnly bool) ([]provider.Avatar, error) {
	if s.avatars == nil {
		return nil, apperrors.Internal("avatar catalog is not configured", nil)
	}
	avatars, err := s.avatars.ListAvatars(ctx, asianOnly)
	if err != nil {
		return nil, apperrors.Upstream("listing avatars failed", err)
	}
	return avatars, nil
}

// ProviderHealth reports the cached health state of every routed provider.
func (s *Service) ProviderHealth() map[provider.Name]routing.ProviderStatus {
	return s.router.Snapshot()
}

// RefreshProvider forces a live health probe of one provider and returns the
// probed state.
func (s *Service) RefreshProvider(ctx context.Context, name string) (bool, error) {
	healthy, err := s.router.RefreshProvider(ctx, provider.Name(name))
	if err != nil {
		return false, apperrors.BadRequest(err.Error())
	}
	return healthy, nil
}

// Stop waits for in-flight background generations to finish.
func (s *Service) Stop() {
	s.wg.Wait()
}

// prepare validates and admits a request: moderation gate, quota check,
// credit deduction, then the persisted record. Admission failures leave no
// record behind except moderation rejections, which are kept for audit.
func (s *Service) prepare(ctx context.Context, userID uuid.UUID, tier string, req *CreateGenerationRequest, status Status) (*job, error) {
	taskType, err := provider.ParseTaskType(req.TaskType)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}
	if tier == "" {
		tier = routing.DefaultUserTier
	}
	params := req.Params
	if params == nil {
		params = map[string]any{}
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, apperrors.BadRequest("params must be JSON serializable")
	}

	if rejErr := s.moderationGate(ctx, taskType, params); rejErr != nil {
		s.persistRejection(ctx, userID, taskType, rawParams, rejErr)
		return nil, rejErr
	}

	if s.quota != nil {
		if err := s.quota.Allow(ctx, userID, tier); err != nil {
			return nil, err
		}
	}

	cost := s.costs[taskType.String()]
	if cost > 0 && s.credits != nil {
		if err := s.credits.Deduct(ctx, userID, cost, "generation:"+taskType.String()); err != nil {
			return nil, err
		}
	}

	rec := &Record{
		ID:           uuid.New(),
		UserID:       userID,
		TaskType:     taskType.String(),
		Status:       status,
		Params:       datatypes.JSON(rawParams),
		CreditsSpent: cost,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		s.refundCredits(ctx, userID, taskType, cost)
		return nil, apperrors.Internal("creating generation record failed", err)
	}

	return &job{rec: rec, taskType: taskType, params: params, tier: tier, cost: cost}, nil
}

// run dispatches one admitted job to the router and settles the record.
func (s *Service) run(ctx context.Context, j *job) (*Record, error) {
	res, err := s.router.Route(ctx, j.taskType, j.params, j.tier)
	if err != nil {
		s.refundCredits(ctx, j.rec.UserID, j.taskType, j.cost)
		appErr := mapRouterError(err)
		s.settle(ctx, j.rec, StatusFailed, appErr.Error())
		return j.rec, appErr
	}

	output := res.Output
	if s.archiver != nil && len(output) > 0 {
		archived, aerr := s.archiver.ArchiveOutput(ctx, j.rec.ID, output)
		if aerr != nil {
			s.logger.Warn("archiving generation output failed",
				zap.String("record_id", j.rec.ID.String()),
				zap.Error(aerr))
		} else if archived != nil {
			output = archived
		}
	}

	j.rec.VendorTaskID = res.TaskID
	j.rec.UsedBackup = res.UsedBackup
	j.rec.BackupProvider = res.BackupProvider
	j.rec.Provider = s.servedBy(j.taskType, res)
	if raw, merr := json.Marshal(output); merr == nil {
		j.rec.Output = datatypes.JSON(raw)
	}
	s.settle(ctx, j.rec, StatusCompleted, "")

	if j.cost > 0 {
		s.metrics.RecordCreditsSpent(j.taskType.String(), j.cost)
	}
	return j.rec, nil
}

// settle marks the record terminal and persists it.
func (s *Service) settle(ctx context.Context, rec *Record, status Status, errMsg string) {
	now := time.Now()
	rec.Status = status
	rec.Error = errMsg
	rec.CompletedAt = &now
	if err := s.repo.Update(ctx, rec); err != nil {
		s.logger.Error("persisting generation record failed",
			zap.String("record_id", rec.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// moderationGate screens the request's text prompt before any credits are
// spent. The gate fails open: only an explicit unsafe verdict rejects the
// request, an unavailable moderation provider lets it through.
func (s *Service) moderationGate(ctx context.Context, taskType provider.TaskType, params map[string]any) *apperrors.AppError {
	if !s.moderateInputs || taskType == provider.TaskModeration {
		return nil
	}
	prompt := textPrompt(params)
	if prompt == "" {
		return nil
	}

	res, err := s.router.Route(ctx, provider.TaskModeration, map[string]any{"prompt": prompt}, routing.DefaultUserTier)
	if err != nil {
		s.logger.Warn("moderation gate unavailable, letting request through", zap.Error(err))
		return nil
	}
	if safe, ok := res.Output["is_safe"].(bool); ok && !safe {
		s.metrics.RecordModerationRejected()
		msg := ""
		if cats := flaggedCategories(res.Output); len(cats) > 0 {
			msg = "content rejected by moderation: " + strings.Join(cats, ", ")
		}
		return apperrors.ContentRejected(msg)
	}
	return nil
}

func (s *Service) persistRejection(ctx context.Context, userID uuid.UUID, taskType provider.TaskType, rawParams []byte, rejErr *apperrors.AppError) {
	rec := &Record{
		ID:       uuid.New(),
		UserID:   userID,
		TaskType: taskType.String(),
		Status:   StatusRejected,
		Params:   datatypes.JSON(rawParams),
		Error:    rejErr.Message,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Warn("persisting rejected generation failed", zap.Error(err))
	}
}

// refundCredits is best effort. A failed refund is logged and the credits
// stay spent rather than masking the original failure.
func (s *Service) refundCredits(ctx context.Context, userID uuid.UUID, taskType provider.TaskType, cost int64) {
	if cost <= 0 || s.credits == nil {
		return
	}
	if err := s.credits.Refund(ctx, userID, cost, "generation_failed:"+taskType.String()); err != nil {
		s.logger.Error("refunding generation credits failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

func (s *Service) servedBy(taskType provider.TaskType, res *routing.Result) string {
	if res.UsedBackup {
		return res.BackupProvider
	}
	if route, ok := s.router.Lookup(taskType); ok {
		return string(route.Primary)
	}
	return ""
}

// mapRouterError translates router and provider failures into transport
// errors. The vendor error text stays reachable through the wrapped chain.
func mapRouterError(err error) *apperrors.AppError {
	var unknownType *routing.UnknownTaskTypeError
	if errors.As(err, &unknownType) {
		return apperrors.BadRequest(unknownType.Error())
	}
	var mismatch *provider.GenderVoiceMismatchError
	if errors.As(err, &mismatch) {
		return apperrors.ValidationError(mismatch.Error())
	}
	var timeout *provider.PollTimeoutError
	if errors.As(err, &timeout) {
		return apperrors.UpstreamTimeout(err.Error(), err)
	}
	return apperrors.Upstream(err.Error(), err)
}

func textPrompt(params map[string]any) string {
	for _, key := range []string{"prompt", "text"} {
		if v, ok := params[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func flaggedCategories(output map[string]any) []string {
	switch v := output["flagged"].(type) {
	case []string:
		return v
	case []any:
		cats := make([]string, 0, len(v))
		for _, c := range v {
			if s, ok := c.(string); ok {
				cats = append(cats, s)
			}
		}
		return cats
	}
	return nil
}
