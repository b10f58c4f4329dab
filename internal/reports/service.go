package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/romeoscript/crime-report/internal/apperr"
	"github.com/romeoscript/crime-report/internal/db"
	"github.com/romeoscript/crime-report/internal/geo"
	"github.com/romeoscript/crime-report/internal/geocoding"
	"github.com/romeoscript/crime-report/internal/media"
)

const (
	// MaxEvidenceFiles is the most attachments one submission may carry.
	MaxEvidenceFiles = 5
	// DefaultRadiusKm is used by FindNearby when no radius is given.
	DefaultRadiusKm = 5.0

	maxCreateAttempts = 3
	submittedComment  = "Report submitted successfully"
)

// Geocoder turns coordinates into a street address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (geocoding.Address, error)
}

// TrackingGenerator hands out candidate tracking numbers.
type TrackingGenerator interface {
	Generate() string
}

// SubmitInput is a report submission as received from the client. Numbers are
// kept as text so that parsing is part of validation.
type SubmitInput struct {
	Type            string
	Description     string
	Location        string
	Latitude        string
	Longitude       string
	DetailedAddress string
	ContactEmail    string
	ContactPhone    string
}

// SubmitResult is what the reporter gets back.
type SubmitResult struct {
	TrackingNumber  string     `json:"trackingNumber"`
	Status          Status     `json:"status"`
	Evidence        []Evidence `json:"evidence"`
	SkippedEvidence int        `json:"skippedEvidence"`
	Message         string     `json:"message"`
}

// StatusResult is returned by UpdateStatus.
type StatusResult struct {
	TrackingNumber string        `json:"trackingNumber"`
	Status         Status        `json:"status"`
	LatestUpdate   *StatusUpdate `json:"latestUpdate"`
}

type Service struct {
	store    *Store
	uploader media.Uploader
	geocoder Geocoder
	tracking TrackingGenerator
	log      *zap.Logger
}

// NewService wires the report lifecycle. geocoder may be nil.
func NewService(store *Store, uploader media.Uploader, geocoder Geocoder, gen TrackingGenerator, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		uploader: uploader,
		geocoder: geocoder,
		tracking: gen,
		log:      log.Named("reports"),
	}
}

// validated holds a submission after parsing.
type validated struct {
	typ      ReportType
	lat, lon float64
	in       SubmitInput
}

func validateSubmission(in SubmitInput, fileCount int) (validated, error) {
	for _, f := range []*string{&in.Type, &in.Description, &in.Location, &in.Latitude, &in.Longitude,
		&in.DetailedAddress, &in.ContactEmail, &in.ContactPhone} {
		*f = strings.TrimSpace(*f)
	}

	if in.Type == "" || in.Description == "" || in.Location == "" || in.Latitude == "" || in.Longitude == "" {
		return validated{}, apperr.Validation("Missing required fields.")
	}
	if fileCount > MaxEvidenceFiles {
		return validated{}, apperr.Validation("At most %d evidence files are allowed.", MaxEvidenceFiles)
	}

	typ, ok := ParseType(in.Type)
	if !ok {
		return validated{}, apperr.Validation("Invalid report type %q.", in.Type)
	}

	lat, err1 := strconv.ParseFloat(in.Latitude, 64)
	lon, err2 := strconv.ParseFloat(in.Longitude, 64)
	if err1 != nil || err2 != nil || !geo.Finite(lat) || !geo.Finite(lon) {
		return validated{}, apperr.Validation("Invalid latitude or longitude")
	}
	if !geo.ValidLatLon(lat, lon) {
		return validated{}, apperr.Validation("Latitude must be within [-90, 90] and longitude within [-180, 180]")
	}

	return validated{typ: typ, lat: lat, lon: lon, in: in}, nil
}

// Submit validates and stores a new report. The staged files are always
// removed before Submit returns.
func (s *Service) Submit(ctx context.Context, in SubmitInput, files []media.Pending) (*SubmitResult, error) {
	defer media.Discard(files...)

	v, err := validateSubmission(in, len(files))
	if err != nil {
		return nil, err
	}

	evidence, skipped := s.upload(ctx, files)

	detailed := v.in.DetailedAddress
	if detailed == "" && s.geocoder != nil {
		addr, err := s.geocoder.ReverseGeocode(ctx, v.lat, v.lon)
		if err != nil {
			s.log.Warn("reverse geocoding failed", zap.Float64("latitude", v.lat), zap.Float64("longitude", v.lon), zap.Error(err))
		} else {
			detailed = addr.Detailed()
		}
	}

	var r *Report
	for attempt := 1; ; attempt++ {
		comment := submittedComment
		r = &Report{
			TrackingNumber:  s.tracking.Generate(),
			Type:            v.typ,
			Description:     v.in.Description,
			Location:        v.in.Location,
			Latitude:        v.lat,
			Longitude:       v.lon,
			DetailedAddress: detailed,
			ContactEmail:    v.in.ContactEmail,
			ContactPhone:    v.in.ContactPhone,
			Status:          StatusSubmitted,
			Evidence:        cloneEvidence(evidence),
			StatusUpdates:   []StatusUpdate{{Status: StatusSubmitted, Comment: &comment}},
		}

		err = s.store.Create(ctx, r)
		if err == nil {
			break
		}
		if !db.IsUniqueViolation(err) {
			return nil, apperr.Upstream("creating report", err)
		}
		s.log.Warn("tracking number collision", zap.String("trackingNumber", r.TrackingNumber), zap.Int("attempt", attempt))
		if attempt == maxCreateAttempts {
			return nil, apperr.Upstream("creating report",
				fmt.Errorf("no free tracking number after %d attempts: %w", attempt, err))
		}
	}

	s.log.Info("report submitted",
		zap.String("trackingNumber", r.TrackingNumber),
		zap.String("type", string(r.Type)),
		zap.Int("evidence", len(r.Evidence)),
		zap.Int("skippedEvidence", skipped),
	)

	return &SubmitResult{
		TrackingNumber:  r.TrackingNumber,
		Status:          r.Status,
		Evidence:        r.Evidence,
		SkippedEvidence: skipped,
		Message:         "Report created successfully. Keep your tracking number for future reference.",
	}, nil
}

// upload pushes each file to the media store in order. Failures are logged
// and counted, never fatal.
func (s *Service) upload(ctx context.Context, files []media.Pending) ([]Evidence, int) {
	evidence := make([]Evidence, 0, len(files))
	skipped := 0
	for _, f := range files {
		start := time.Now()
		up, err := s.uploader.Upload(ctx, f)
		if err != nil {
			skipped++
			s.log.Warn("evidence upload failed",
				zap.String("file", f.Filename),
				zap.String("provider", s.uploader.Name()),
				zap.Error(err))
			continue
		}
		s.log.Debug("evidence uploaded", zap.String("url", up.URL), zap.Duration("took", time.Since(start)))
		evidence = append(evidence, Evidence{FileURL: up.URL, FileType: up.FileType})
	}
	return evidence, skipped
}

func cloneEvidence(in []Evidence) []Evidence {
	out := make([]Evidence, len(in))
	copy(out, in)
	return out
}

// GetByTrackingNumber returns the full report. The key is not format checked;
// a malformed number is simply not found.
func (s *Service) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*Report, error) {
	r, err := s.store.FindByTrackingNumber(ctx, trackingNumber)
	if errors.Is(err, ErrReportNotFound) {
		return nil, apperr.NotFound("report", trackingNumber)
	}
	if err != nil {
		return nil, apperr.Upstream("fetching report", err)
	}
	ensureSlices(r)
	return r, nil
}

// UpdateStatus moves a report to PROCESSING, INVESTIGATING or RESOLVED from
// any current status and records the change.
func (s *Service) UpdateStatus(ctx context.Context, trackingNumber, status string, comment *string) (*StatusResult, error) {
	st, ok := ParseStatus(status)
	if !ok || !st.Settable() {
		return nil, apperr.Validation("Invalid status value")
	}
	if comment != nil && strings.TrimSpace(*comment) == "" {
		comment = nil
	}

	r, update, err := s.store.SetStatus(ctx, trackingNumber, st, comment)
	if errors.Is(err, ErrReportNotFound) {
		return nil, apperr.NotFound("report", trackingNumber)
	}
	if err != nil {
		return nil, apperr.Upstream("updating report status", err)
	}

	s.log.Info("report status updated", zap.String("trackingNumber", r.TrackingNumber), zap.String("status", string(st)))
	return &StatusResult{TrackingNumber: r.TrackingNumber, Status: r.Status, LatestUpdate: update}, nil
}

// ListAll returns every report newest first, optionally only those in status.
func (s *Service) ListAll(ctx context.Context, status string) ([]Report, error) {
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
		return nil, apperr.Upstream("listing reports", err)
	}
	for i := range out {
		ensureSlices(&out[i])
	}
	return out, nil
}

// FindNearby returns reports strictly closer than radiusKm to lat,lon,
// nearest first. A nil radius means DefaultRadiusKm.
func (s *Service) FindNearby(ctx context.Context, lat, lon float64, radiusKm *float64) ([]NearbyReport, error) {
	if !geo.Finite(lat) || !geo.Finite(lon) {
		return nil, apperr.Validation("Invalid latitude or longitude")
	}
	radius := DefaultRadiusKm
	if radiusKm != nil {
		radius = *radiusKm
	}
	if !geo.Finite(radius) || radius < 0 {
		return nil, apperr.Validation("Invalid radius")
	}

	all, err := s.store.All(ctx)
	if err != nil {
		return nil, apperr.Upstream("fetching nearby reports", err)
	}

	points := make([]geo.Point, len(all))
	for i, r := range all {
		points[i] = geo.Point{Lat: r.Latitude, Lon: r.Longitude}
	}

	matches := geo.Within(geo.Point{Lat: lat, Lon: lon}, points, radius)
	out := make([]NearbyReport, 0, len(matches))
	for _, m := range matches {
		r := all[m.Index]
		ensureSlices(&r)
		out = append(out, NearbyReport{Report: r, Distance: m.DistanceKm})
	}
	return out, nil
}

// ensureSlices makes evidence encode as [] rather than null.
func ensureSlices(r *Report) {
	if r.Evidence == nil {
		r.Evidence = []Evidence{}
	}
}
