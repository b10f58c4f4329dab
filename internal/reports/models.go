package reports

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type ReportType string

const (
	TypeTheft              ReportType = "THEFT"
	TypeVandalism          ReportType = "VANDALISM"
	TypeAssault            ReportType = "ASSAULT"
	TypeSuspiciousActivity ReportType = "SUSPICIOUS_ACTIVITY"
	TypeOther              ReportType = "OTHER"
)

var reportTypes = []ReportType{TypeTheft, TypeVandalism, TypeAssault, TypeSuspiciousActivity, TypeOther}

type Status string

const (
	StatusSubmitted     Status = "SUBMITTED"
	StatusProcessing    Status = "PROCESSING"
	StatusInvestigating Status = "INVESTIGATING"
	StatusResolved      Status = "RESOLVED"
)

var statuses = []Status{StatusSubmitted, StatusProcessing, StatusInvestigating, StatusResolved}

// normalizeEnum upper-cases input and folds "suspicious activity" and
// "suspicious-activity" onto SUSPICIOUS_ACTIVITY.
func normalizeEnum(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	// A Caser keeps state, so one per call.
	return cases.Upper(language.Und).String(s)
}

// ParseType accepts any casing of a report type.
func ParseType(s string) (ReportType, bool) {
	n := ReportType(normalizeEnum(s))
	for _, t := range reportTypes {
		if t == n {
			return t, true
		}
	}
	return "", false
}

// ParseStatus accepts any casing of a report status.
func ParseStatus(s string) (Status, bool) {
	n := Status(normalizeEnum(s))
	for _, st := range statuses {
		if st == n {
			return st, true
		}
	}
	return "", false
}

// Settable reports whether an admin may move a report to s. SUBMITTED is
// only ever set on creation.
func (s Status) Settable() bool {
	return s == StatusProcessing || s == StatusInvestigating || s == StatusResolved
}

type Report struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	TrackingNumber  string         `gorm:"uniqueIndex;not null" json:"trackingNumber"`
	Type            ReportType     `gorm:"not null" json:"type"`
	Description     string         `gorm:"type:text;not null" json:"description"`
	Location        string         `gorm:"not null" json:"location"`
	Latitude        float64        `gorm:"not null" json:"latitude"`
	Longitude       float64        `gorm:"not null" json:"longitude"`
	DetailedAddress string         `json:"detailedAddress,omitempty"`
	ContactEmail    string         `json:"contactEmail,omitempty"`
	ContactPhone    string         `json:"contactPhone,omitempty"`
	Status          Status         `gorm:"not null;index" json:"status"`
	CreatedAt       time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	Evidence        []Evidence     `gorm:"foreignKey:ReportID" json:"evidence"`
	StatusUpdates   []StatusUpdate `gorm:"foreignKey:ReportID" json:"statusUpdates,omitempty"`
}

type Evidence struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReportID  uint      `gorm:"index;not null" json:"reportId"`
	FileURL   string    `gorm:"not null" json:"fileUrl"`
	FileType  string    `gorm:"not null" json:"fileType"`
	CreatedAt time.Time `json:"createdAt"`
}

type StatusUpdate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReportID  uint      `gorm:"index;not null" json:"reportId"`
	Status    Status    `gorm:"not null" json:"status"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// NearbyReport is a report annotated with its distance from the query point.
type NearbyReport struct {
	Report
	Distance float64 `json:"distance"`
}
