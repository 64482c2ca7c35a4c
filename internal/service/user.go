// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/usergate/usergate/internal/logging"
	"github.com/usergate/usergate/internal/metrics"
	"github.com/usergate/usergate/internal/model"
	"github.com/usergate/usergate/internal/repository"
)

const tracerName = "github.com/usergate/usergate/internal/service"

// UserStore is the record store the service persists users in.
// FindByID and DeleteByID return repository.ErrUserNotFound for unknown ids.
type UserStore interface {
	FindAll(ctx context.Context) ([]*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	Save(ctx context.Context, user *model.User) (*model.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// EmailValidator asks an external authority whether an address is acceptable.
type EmailValidator interface {
	Validate(ctx context.Context, email string) (*model.EmailValidationResult, error)
}

// UserService handles user business logic.
type UserService struct {
	store     UserStore
	validator EmailValidator
	metrics   metrics.Recorder
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, validator EmailValidator, recorder metrics.Recorder, logger *slog.Logger) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		store:     store,
		validator: validator,
		metrics:   recorder,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// List returns every user in store order.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.List")
	defer span.End()

	users, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, s.fail(span, storeError(err))
	}
	span.SetAttributes(attribute.Int("user.count", len(users)))
	return users, nil
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Get", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return user, nil
}

// Create validates the candidate's email and persists it if the address is valid.
// The store is never touched when validation fails or rejects the address.
func (s *UserService) Create(ctx context.Context, candidate model.User) (*model.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Create")
	defer span.End()

	result, err := s.validator.Validate(ctx, candidate.Email)
	if err != nil {
		s.logger.WarnContext(ctx, "email_validation_unavailable",
			logging.Email(candidate.Email),
			slog.String("error", err.Error()),
		)
		return nil, s.fail(span, validationUnavailable(err))
	}

	if !result.Valid {
		s.metrics.IncUserRejected()
		s.logger.WarnContext(ctx, "user_email_rejected",
			logging.Email(candidate.Email),
			slog.String("reason", result.Reason),
		)
		return nil, s.fail(span, invalidEmail(result.Reason))
	}

	record := candidate.Clone()
	record.ID = ""

	saved, err := s.store.Save(ctx, record)
	if err != nil {
		return nil, s.fail(span, storeError(err))
	}

	span.SetAttributes(attribute.String("user.id", saved.ID))
	s.metrics.IncUserCreated()
	s.logger.InfoContext(ctx, "user_created",
		slog.String("user_id", saved.ID),
		logging.Email(saved.Email),
	)

	return saved, nil
}

// Update overwrites name and email of an existing user.
// The id of the stored record is kept whatever the patch carries, and the new
// address is not re-validated.
func (s *UserService) Update(ctx context.Context, id string, patch model.User) (*model.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Update", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	existing, err := s.requireExisting(ctx, id)
	if err != nil {
		return nil, s.fail(span, err)
	}

	existing.ApplyPatch(patch)

	saved, err := s.store.Save(ctx, existing)
	if err != nil {
		return nil, s.fail(span, storeError(err))
	}

	s.metrics.IncUserUpdated()
	s.logger.InfoContext(ctx, "user_updated",
		slog.String("user_id", saved.ID),
		logging.Email(saved.Email),
	)

	return saved, nil
}

// Delete removes an existing user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "UserService.Delete", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	existing, err := s.requireExisting(ctx, id)
	if err != nil {
		return s.fail(span, err)
	}

	if err := s.store.DeleteByID(ctx, existing.ID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.fail(span, notFound(id))
		}
		return s.fail(span, storeError(err))
	}

	s.metrics.IncUserDeleted()
	s.logger.InfoContext(ctx, "user_deleted",
		slog.String("user_id", existing.ID),
		logging.Email(existing.Email),
	)

	return nil
}

// requireExisting must succeed before Update and Delete issue their mutating call.
func (s *UserService) requireExisting(ctx context.Context, id string) (*model.User, error) {
	return s.find(ctx, id)
}

func (s *UserService) find(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound(id)
		}
		return nil, storeError(err)
	}
	return user, nil
}

// fail records err on the span. Expected outcomes (not found, rejected
// address) are not span errors.
func (s *UserService) fail(span trace.Span, err error) error {
	span.SetAttributes(attribute.String("error.kind", string(KindOf(err))))
	switch KindOf(err) {
	case KindStore, KindValidationUnavailable:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
