package services

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/metrics"
	"github.com/hookupza/apiserver/types"
)

const (
	// PremiumAdTTL is the lifetime of ads posted by vendors and admins.
	PremiumAdTTL = 30 * 24 * time.Hour
	// StandardAdTTL is the lifetime of ads posted by free accounts.
	StandardAdTTL = 3 * 24 * time.Hour
	// DefaultAutoApproveAfter is how long a pending ad waits for moderation
	// before the auto-approve job activates it.
	DefaultAutoApproveAfter = 24 * time.Hour

	publicAdLimit = 100
	allCategories = "all"
)

// AdRepository defines persistence operations for ads.
type AdRepository interface {
	Create(ctx context.Context, ad types.Ad) (types.Ad, error)
	Get(ctx context.Context, id int) (types.Ad, error)
	ListByUser(ctx context.Context, userID int) ([]types.Ad, error)
	ListAll(ctx context.Context) ([]types.Ad, error)
	ListPublic(ctx context.Context, category string, now time.Time, limit int) ([]types.Ad, error)
	Update(ctx context.Context, ad types.Ad) (types.Ad, error)
	DeleteOwned(ctx context.Context, id, userID int) error
	SetStatus(ctx context.Context, id int, status types.AdStatus) (int, error)
	ActivatePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ExpireActiveBefore(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context) (types.Stats, error)
}

// EventPublisher delivers lifecycle events to a broker.
type EventPublisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) (string, error)
}

// Placement is how a new ad enters the lifecycle.
type Placement struct {
	Status    types.AdStatus
	IsPremium bool
	ExpiresAt time.Time
}

// PlacementFor decides the initial status, premium flag and expiry of an
// ad posted at now by a poster of the given tier.
func PlacementFor(tier types.Tier, now time.Time) Placement {
	switch tier {
	case types.TierVendor, types.TierAdmin:
		return Placement{
			Status:    types.AdStatusActive,
			IsPremium: true,
			ExpiresAt: now.Add(PremiumAdTTL),
		}
	default:
		return Placement{
			Status:    types.AdStatusPending,
			IsPremium: false,
			ExpiresAt: now.Add(StandardAdTTL),
		}
	}
}

// AdService encapsulates the ad lifecycle: placement on creation,
// moderation and the two bulk transitions.
type AdService struct {
	repo    AdRepository
	events  EventPublisher
	topic   string
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// AdOption configures optional collaborators of the AdService.
type AdOption func(*AdService)

// WithEvents publishes lifecycle events on topic.
func WithEvents(publisher EventPublisher, topic string) AdOption {
	return func(s *AdService) {
		s.events = publisher
		s.topic = topic
	}
}

func WithMetrics(m *metrics.Metrics) AdOption {
	return func(s *AdService) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) AdOption {
	return func(s *AdService) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) AdOption {
	return func(s *AdService) {
		s.now = now
	}
}

func NewAdService(repo AdRepository, opts ...AdOption) *AdService {
	s := &AdService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.Resolve(s.logger)
	return s
}

// Create stores a new ad for poster. Status, premium flag and expiry come
// from the poster's tier as stored right now.
func (s *AdService) Create(ctx context.Context, ad types.Ad, poster types.User) (types.Ad, error) {
	now := s.now()
	tier := poster.Tier()
	placement := PlacementFor(tier, now)

	ad.ID = 0
	ad.UserID = poster.ID
	ad.Status = placement.Status
	ad.IsPremium = placement.IsPremium
	ad.CreatedAt = now
	ad.ExpiresAt = placement.ExpiresAt
	if ad.Services == nil {
		ad.Services = types.StringList{}
	}
	if ad.Photos == nil {
		ad.Photos = types.StringList{}
	}

	created, err := s.repo.Create(ctx, ad)
	if err != nil {
		return types.Ad{}, err
	}

	s.metrics.AdCreated(string(created.Status), tier.String())
	s.publish(ctx, types.AdEvent{
		Type:       types.AdEventCreated,
		AdID:       created.ID,
		UserID:     created.UserID,
		Status:     created.Status,
		OccurredAt: now,
	})
	return created, nil
}

func (s *AdService) Get(ctx context.Context, id int) (types.Ad, error) {
	return s.repo.Get(ctx, id)
}

func (s *AdService) ListByOwner(ctx context.Context, userID int) ([]types.Ad, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *AdService) ListAll(ctx context.Context) ([]types.Ad, error) {
	return s.repo.ListAll(ctx)
}

// ListPublic returns the active, unexpired ads shown on the public board.
// The category "all" (or empty) matches every category.
func (s *AdService) ListPublic(ctx context.Context, category string) ([]types.Ad, error) {
	category = strings.TrimSpace(category)
	if strings.EqualFold(category, allCategories) {
		category = ""
	}
	return s.repo.ListPublic(ctx, category, s.now(), publicAdLimit)
}

// Update applies patch to an ad. Only the owner or an admin may edit.
func (s *AdService) Update(ctx context.Context, id int, editor types.User, patch types.AdPatch) (types.Ad, error) {
	ad, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Ad{}, err
	}
	if ad.UserID != editor.ID && !editor.IsAdmin() {
		return types.Ad{}, ErrForbidden
	}

	patch.Apply(&ad)
	return s.repo.Update(ctx, ad)
}

// Delete removes an ad owned by ownerID.
func (s *AdService) Delete(ctx context.Context, id, ownerID int) error {
	return s.repo.DeleteOwned(ctx, id, ownerID)
}

// Approve sets the ad active whatever its current status.
func (s *AdService) Approve(ctx context.Context, id int) error {
	return s.setStatus(ctx, id, types.AdStatusActive, types.AdEventApproved)
}

// Reject sets the ad rejected whatever its current status.
func (s *AdService) Reject(ctx context.Context, id int) error {
	return s.setStatus(ctx, id, types.AdStatusRejected, types.AdEventRejected)
}

func (s *AdService) setStatus(ctx context.Context, id int, status types.AdStatus, event types.AdEventType) error {
	ownerID, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return err
	}

	s.metrics.AdTransitions("to_"+string(status), 1)
	s.publish(ctx, types.AdEvent{
		Type:       event,
		AdID:       id,
		UserID:     ownerID,
		Status:     status,
		OccurredAt: s.now(),
	})
	return nil
}

// AutoApprovePending activates every pending ad created at least olderThan
// ago and returns how many were activated. A non-positive olderThan means
// DefaultAutoApproveAfter.
func (s *AdService) AutoApprovePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = DefaultAutoApproveAfter
	}
	now := s.now()
	count, err := s.repo.ActivatePendingBefore(ctx, now.Add(-olderThan))
	if err != nil {
		return 0, err
	}

	s.metrics.AdTransitions("pending_to_active", count)
	if count > 0 {
		s.publish(ctx, types.AdEvent{
			Type:       types.AdEventAutoApproved,
			Status:     types.AdStatusActive,
			Count:      count,
			OccurredAt: now,
		})
	}
	return count, nil
}

// ExpireActive marks every active ad whose expiry is at or before now as
// expired and returns how many were changed.
func (s *AdService) ExpireActive(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.ExpireActiveBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	s.metrics.AdTransitions("active_to_expired", count)
	if count > 0 {
		s.publish(ctx, types.AdEvent{
			Type:       types.AdEventExpired,
			Status:     types.AdStatusExpired,
			Count:      count,
			OccurredAt: now,
		})
	}
	return count, nil
}

// Now returns the service clock.
func (s *AdService) Now() time.Time {
	return s.now()
}

func (s *AdService) Stats(ctx context.Context) (types.Stats, error) {
	return s.repo.Stats(ctx)
}

// publish is best effort: the transition already committed.
func (s *AdService) publish(ctx context.Context, event types.AdEvent) {
	if s.events == nil {
		return
	}
	key := string(event.Type)
	if _, err := s.events.PublishJSON(ctx, s.topic, key, event); err != nil {
		s.logger.WarnContext(ctx, "publish ad event failed",
			"event", key,
			"ad_id", strconv.Itoa(event.AdID),
			"error", err,
		)
	}
}
