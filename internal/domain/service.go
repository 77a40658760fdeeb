// Package domain defines the business logic for the activity registry.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"example.com/activities/internal/events"
	"example.com/activities/internal/observability"
)

var (
	// ErrActivityNotFound is returned when no activity has the requested name.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadyEnrolled is returned when the email is already on the roster.
	ErrAlreadyEnrolled = errors.New("student already signed up for this activity")
	// ErrParticipantNotFound is returned when the email is not on the roster.
	ErrParticipantNotFound = errors.New("participant not found in activity")
)

// Store captures the registry operations a backend must provide.
type Store interface {
	List(ctx context.Context) ([]Activity, error)
	Enroll(ctx context.Context, activityName, email string) error
	Unenroll(ctx context.Context, activityName, email string) error
}

// Publisher announces roster changes to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event events.RosterChanged) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, events.RosterChanged) error { return nil }

// Service orchestrates registry workflows.
type Service struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithPublisher sets the roster event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: NoopPublisher{},
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("example.com/activities/internal/domain"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActivities returns every activity in registry order.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	ctx, span := s.tracer.Start(ctx, "registry.list")
	defer span.End()

	activities, err := s.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list activities: %w", err)
	}
	for _, a := range activities {
		observability.RecordRosterSize(a.Name, len(a.Participants))
	}
	span.SetAttributes(attribute.Int("registry.activities", len(activities)))
	return activities, nil
}

// Enroll appends email to the roster of activityName.
func (s *Service) Enroll(ctx context.Context, activityName, email string) error {
	ctx, span := s.tracer.Start(ctx, "registry.enroll", trace.WithAttributes(
		attribute.String("activity.name", activityName),
	))
	defer span.End()

	if err := s.store.Enroll(ctx, activityName, email); err != nil {
		s.reject(span, "enroll", err)
		return err
	}
	observability.RecordEnrollment(activityName)
	observability.AdjustRosterSize(activityName, 1)
	s.publish(ctx, events.TypeParticipantAdded, activityName, email)
	return nil
}

// Unenroll removes email from the roster of activityName.
func (s *Service) Unenroll(ctx context.Context, activityName, email string) error {
	ctx, span := s.tracer.Start(ctx, "registry.unenroll", trace.WithAttributes(
		attribute.String("activity.name", activityName),
	))
	defer span.End()

	if err := s.store.Unenroll(ctx, activityName, email); err != nil {
		s.reject(span, "unenroll", err)
		return err
	}
	observability.RecordUnenrollment(activityName)
	observability.AdjustRosterSize(activityName, -1)
	s.publish(ctx, events.TypeParticipantRemoved, activityName, email)
	return nil
}

func (s *Service) reject(span trace.Span, op string, err error) {
	reason := RejectionReason(err)
	span.SetAttributes(attribute.String("registry.rejection", reason))
	if reason == "internal" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("registry operation failed", zap.String("op", op), zap.Error(err))
	}
	observability.RecordRejection(op, reason)
}

// publish never fails the caller: the roster has already changed. The
// request's cancellation does not reach the publisher.
func (s *Service) publish(ctx context.Context, eventType, activityName, email string) {
	ctx = context.WithoutCancel(ctx)
	event := events.RosterChanged{
		EventID:    uuid.NewString(),
		Type:       eventType,
		Activity:   activityName,
		Email:      email,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		observability.RecordPublishFailure(eventType)
		s.logger.Warn("roster event not published",
			zap.String("event_type", eventType),
			zap.String("activity", activityName),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}
}

// RejectionReason classifies err for metrics and logs.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrActivityNotFound):
		return "activity_not_found"
	case errors.Is(err, ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, ErrParticipantNotFound):
		return "participant_not_found"
	default:
		return "internal"
	}
}
