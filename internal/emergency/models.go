package emergency

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusResponded Status = "RESPONDED"
	StatusResolved  Status = "RESOLVED"
)

// ParseStatus accepts any casing of an emergency status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(cases.Upper(language.Und).String(strings.TrimSpace(s))); st {
	case StatusPending, StatusResponded, StatusResolved:
		return st, true
	}
	return "", false
}

// CanMoveTo reports whether an emergency in s may be set to next. PENDING is
// never a target and RESOLVED never goes back to RESPONDED; repeating the
// current state is allowed.
func (s Status) CanMoveTo(next Status) bool {
	switch next {
	case StatusResponded:
		return s == StatusPending || s == StatusResponded
	case StatusResolved:
		return true
	}
	return false
}

type Emergency struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Status      Status    `gorm:"not null;index" json:"status"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
