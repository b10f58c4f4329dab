package reports

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrReportNotFound is returned by the store for an unknown tracking number.
var ErrReportNotFound = errors.New("report not found")

// Store persists reports with gorm. The handle is injected; the store keeps
// no other state.
type Store struct {
	db *gorm.DB
}

func NewStore(d *gorm.DB) *Store {
	return &Store{db: d}
}

func oldestFirst(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }

func newestFirst(tx *gorm.DB) *gorm.DB { return tx.Order("created_at DESC, id DESC") }

// Create writes the report, its evidence and its status updates in one
// transaction. Nothing is written when any insert fails.
func (s *Store) Create(ctx context.Context, r *Report) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(r).Error; err != nil {
			return err
		}
		for i := range r.Evidence {
			r.Evidence[i].ReportID = r.ID
		}
		if len(r.Evidence) > 0 {
			if err := tx.Create(&r.Evidence).Error; err != nil {
				return err
			}
		}
		for i := range r.StatusUpdates {
			r.StatusUpdates[i].ReportID = r.ID
		}
		if len(r.StatusUpdates) > 0 {
			if err := tx.Create(&r.StatusUpdates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByTrackingNumber loads a report with its evidence (oldest first) and
// status history (newest first).
func (s *Store) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*Report, error) {
	var r Report
	err := s.db.WithContext(ctx).
		Preload("Evidence", oldestFirst).
		Preload("StatusUpdates", newestFirst).
		Where("tracking_number = ?", trackingNumber).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SetStatus changes the report status and appends the matching StatusUpdate
// in one transaction.
func (s *Store) SetStatus(ctx context.Context, trackingNumber string, status Status, comment *string) (*Report, *StatusUpdate, error) {
	var (
		r      Report
		update StatusUpdate
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tracking_number = ?", trackingNumber).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReportNotFound
			}
			return err
		}
		if err := tx.Model(&r).Update("status", status).Error; err != nil {
			return err
		}
		r.Status = status
		update = StatusUpdate{ReportID: r.ID, Status: status, Comment: comment}
		return tx.Create(&update).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &r, &update, nil
}

// List returns reports newest first with their evidence. An empty status
// means no filter.
func (s *Store) List(ctx context.Context, status Status) ([]Report, error) {
	q := s.db.WithContext(ctx).Preload("Evidence", oldestFirst)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []Report
	if err := newestFirst(q).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// All returns every report without associations, for in-process distance
// filtering.
func (s *Store) All(ctx context.Context) ([]Report, error) {
	var out []Report
	err := s.db.WithContext(ctx).
		Preload("Evidence", oldestFirst).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
