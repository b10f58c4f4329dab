package emergency

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/romeoscript/crime-report/internal/apperr"
)

type Service struct {
	store *Store
	log   *zap.Logger
}

func NewService(store *Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log.Named("emergency")}
}

// Created is returned to the person raising the alert.
type Created struct {
	ID      uint   `json:"id"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Updated is returned after a status change.
type Updated struct {
	ID     uint   `json:"id"`
	Status Status `json:"status"`
}

// Report records a new PENDING emergency.
func (s *Service) Report(ctx context.Context, description string) (*Created, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperr.Validation("Description is required for emergency reports.")
	}

	e := &Emergency{Description: description, Status: StatusPending}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, apperr.Upstream("creating emergency", err)
	}

	s.log.Info("emergency reported", zap.Uint("id", e.ID))
	return &Created{ID: e.ID, Status: e.Status, Message: "Emergency report created successfully."}, nil
}

// UpdateStatus moves an emergency to RESPONDED or RESOLVED.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status string) (*Updated, error) {
	next, ok := ParseStatus(status)
	if !ok || next == StatusPending {
		return nil, apperr.Validation("Invalid status value")
	}

	e, err := s.store.Transition(ctx, id, next, func(current Status) error {
		if !current.CanMoveTo(next) {
			return apperr.Validation("Cannot change emergency status from %s to %s", current, next)
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrEmergencyNotFound):
		return nil, apperr.NotFound("emergency", strconv.FormatUint(uint64(id), 10))
	case apperr.IsValidation(err):
		return nil, err
	case err != nil:
		return nil, apperr.Upstream("updating emergency status", err)
	}

	s.log.Info("emergency status updated", zap.Uint("id", e.ID), zap.String("status", string(e.Status)))
	return &Updated{ID: e.ID, Status: e.Status}, nil
}

// ListAll returns emergencies newest first, optionally only those in status.
func (s *Service) ListAll(ctx context.Context, status string) ([]Emergency, error) {
	var filter Status
	if strings.TrimSpace(status) != "" {
		st, ok := ParseStatus(status)
		if !ok {
			return nil, apperr.Validation("Invalid status filter %q", status)
		}
		filter = st
	}

	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, apperr.Upstream("listing emergencies", err)
	}
	return out, nil
}
