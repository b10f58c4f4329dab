package emergency

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrEmergencyNotFound = errors.New("emergency not found")

type Store struct {
	db *gorm.DB
}

func NewStore(d *gorm.DB) *Store {
	return &Store{db: d}
}

func (s *Store) Create(ctx context.Context, e *Emergency) error {
	return s.db.WithContext(ctx).Create(e).Error
}

// Transition loads the emergency, lets check veto the change, then saves the
// new status, all inside one transaction.
func (s *Store) Transition(ctx context.Context, id uint, next Status, check func(current Status) error) (*Emergency, error) {
	var e Emergency
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&e, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmergencyNotFound
			}
			return err
		}
		if err := check(e.Status); err != nil {
			return err
		}
		if e.Status == next {
			return nil
		}
		if err := tx.Model(&e).Update("status", next).Error; err != nil {
			return err
		}
		e.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns emergencies newest first. An empty status means no filter.
func (s *Store) List(ctx context.Context, status Status) ([]Emergency, error) {
	q := s.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	out := []Emergency{}
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
