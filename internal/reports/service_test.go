package reports

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/romeoscript/crime-report/internal/apperr"
	"github.com/romeoscript/crime-report/internal/geocoding"
	"github.com/romeoscript/crime-report/internal/media"
	"github.com/romeoscript/crime-report/internal/tracking"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := d.DB()
	require.NoError(t, err)
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(d))
	return d
}

type fakeUploader struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeUploader) Name() string { return "fake" }

func (f *fakeUploader) Upload(_ context.Context, p media.Pending) (media.Uploaded, error) {
	f.calls = append(f.calls, p.Filename)
	if f.fail[p.Filename] {
		return media.Uploaded{}, errors.New("upload refused")
	}
	return media.Uploaded{URL: "https://cdn.test/" + p.Filename, FileType: p.ContentType}, nil
}

type fakeGeocoder struct {
	addr  geocoding.Address
	err   error
	calls int
}

func (f *fakeGeocoder) ReverseGeocode(context.Context, float64, float64) (geocoding.Address, error) {
	f.calls++
	return f.addr, f.err
}

// fixedNumbers returns its numbers in order, then repeats the last one.
type fixedNumbers struct {
	numbers []string
	i       int
}

func (f *fixedNumbers) Generate() string {
	n := f.numbers[min(f.i, len(f.numbers)-1)]
	f.i++
	return n
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	uploader *fakeUploader
}

func newFixture(t *testing.T, gen TrackingGenerator, gc Geocoder) fixture {
	t.Helper()
	d := openTestDB(t)
	up := &fakeUploader{fail: map[string]bool{}}
	if gen == nil {
		gen = tracking.NewGenerator()
	}
	return fixture{db: d, svc: NewService(NewStore(d), up, gc, gen, zap.NewNop()), uploader: up}
}

func stageFiles(t *testing.T, names ...string) []media.Pending {
	t.Helper()
	dir := t.TempDir()
	var out []media.Pending
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("data"), 0o600))
		out = append(out, media.Pending{Path: p, Filename: n, ContentType: "image/jpeg", Size: 4})
	}
	return out
}

func assertRemoved(t *testing.T, files []media.Pending) {
	t.Helper()
	for _, f := range files {
		_, err := os.Stat(f.Path)
		assert.True(t, os.IsNotExist(err), "%s still on disk", f.Path)
	}
}

func theft() SubmitInput {
	return SubmitInput{
		Type:        "THEFT",
		Description: "bike stolen",
		Location:    "Main St",
		Latitude:    "40.0",
		Longitude:   "-75.0",
	}
}

func count(t *testing.T, d *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, d.Model(model).Count(&n).Error)
	return n
}

func TestSubmitWithoutFiles(t *testing.T) {
	f := newFixture(t, nil, nil)

	res, err := f.svc.Submit(context.Background(), theft(), nil)
	require.NoError(t, err)

	assert.Regexp(t, tracking.Pattern, res.TrackingNumber)
	assert.Equal(t, StatusSubmitted, res.Status)
	assert.NotNil(t, res.Evidence)
	assert.Empty(t, res.Evidence)
	assert.Zero(t, res.SkippedEvidence)

	got, err := f.svc.GetByTrackingNumber(context.Background(), res.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, TypeTheft, got.Type)
	assert.Equal(t, 40.0, got.Latitude)
	assert.Equal(t, -75.0, got.Longitude)
	require.Len(t, got.StatusUpdates, 1)
	assert.Equal(t, StatusSubmitted, got.StatusUpdates[0].Status)
	require.NotNil(t, got.StatusUpdates[0].Comment)
	assert.Equal(t, "Report submitted successfully", *got.StatusUpdates[0].Comment)
}

func TestSubmitSkipsFailedUploads(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.uploader.fail["b.jpg"] = true
	files := stageFiles(t, "a.jpg", "b.jpg", "c.jpg")

	res, err := f.svc.Submit(context.Background(), theft(), files)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, f.uploader.calls)
	assert.Equal(t, 1, res.SkippedEvidence)
	require.Len(t, res.Evidence, 2)
	assert.Equal(t, "https://cdn.test/a.jpg", res.Evidence[0].FileURL)
	assert.Equal(t, "https://cdn.test/c.jpg", res.Evidence[1].FileURL)
	assertRemoved(t, files)

	got, err := f.svc.GetByTrackingNumber(context.Background(), res.TrackingNumber)
	require.NoError(t, err)
	require.Len(t, got.Evidence, 2)
	assert.Equal(t, "https://cdn.test/a.jpg", got.Evidence[0].FileURL)
}

func TestSubmitRejectsTooManyFiles(t *testing.T) {
	f := newFixture(t, nil, nil)
	files := stageFiles(t, "1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg")

	_, err := f.svc.Submit(context.Background(), theft(), files)
	assert.True(t, apperr.IsValidation(err), "got %v", err)
	assert.Empty(t, f.uploader.calls)
	assertRemoved(t, files)
	assert.Zero(t, count(t, f.db, &Report{}))
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"missing type", func(in *SubmitInput) { in.Type = "" }},
		{"blank description", func(in *SubmitInput) { in.Description = "   " }},
		{"missing location", func(in *SubmitInput) { in.Location = "" }},
		{"missing latitude", func(in *SubmitInput) { in.Latitude = "" }},
		{"unknown type", func(in *SubmitInput) { in.Type = "ARSON" }},
		{"latitude not a number", func(in *SubmitInput) { in.Latitude = "north" }},
		{"latitude NaN", func(in *SubmitInput) { in.Latitude = "NaN" }},
		{"longitude infinite", func(in *SubmitInput) { in.Longitude = "+Inf" }},
		{"latitude out of range", func(in *SubmitInput) { in.Latitude = "91" }},
		{"longitude out of range", func(in *SubmitInput) { in.Longitude = "-180.5" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)
			in := theft()
			tt.mutate(&in)
			files := stageFiles(t, "a.jpg")

			_, err := f.svc.Submit(context.Background(), in, files)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
			assert.Empty(t, f.uploader.calls)
			assertRemoved(t, files)
			assert.Zero(t, count(t, f.db, &Report{}))
		})
	}
}

func TestSubmitAcceptsLowerCaseType(t *testing.T) {
	f := newFixture(t, nil, nil)
	in := theft()
	in.Type = "suspicious activity"

	res, err := f.svc.Submit(context.Background(), in, nil)
	require.NoError(t, err)

	got, err := f.svc.GetByTrackingNumber(context.Background(), res.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, TypeSuspiciousActivity, got.Type)
}

func TestSubmitRetriesTrackingCollision(t *testing.T) {
	gen := &fixedNumbers{numbers: []string{"CR2610-0001", "CR2610-0001", "CR2610-0002"}}
	f := newFixture(t, gen, nil)

	_, err := f.svc.Submit(context.Background(), theft(), nil)
	require.NoError(t, err)

	res, err := f.svc.Submit(context.Background(), theft(), stageFiles(t, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "CR2610-0002", res.TrackingNumber)

	assert.EqualValues(t, 2, count(t, f.db, &Report{}))
	// the failed attempt left nothing behind
	assert.EqualValues(t, 1, count(t, f.db, &Evidence{}))
	assert.EqualValues(t, 2, count(t, f.db, &StatusUpdate{}))
}

func TestSubmitGivesUpAfterThreeCollisions(t *testing.T) {
	gen := &fixedNumbers{numbers: []string{"CR2610-0001"}}
	f := newFixture(t, gen, nil)

	_, err := f.svc.Submit(context.Background(), theft(), nil)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), theft(), nil)
	var up *apperr.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, 4, gen.i)
	assert.EqualValues(t, 1, count(t, f.db, &Report{}))
}

func TestSubmitReverseGeocodes(t *testing.T) {
	gc := &fakeGeocoder{addr: geocoding.Address{Street: "Market St", City: "Philadelphia", State: "Pennsylvania"}}
	f := newFixture(t, nil, gc)

	res, err := f.svc.Submit(context.Background(), theft(), nil)
	require.NoError(t, err)
	got, err := f.svc.GetByTrackingNumber(context.Background(), res.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, "Market St, Philadelphia, Pennsylvania", got.DetailedAddress)

	in := theft()
	in.DetailedAddress = "Behind the library"
	res, err = f.svc.Submit(context.Background(), in, nil)
	require.NoError(t, err)
	got, err = f.svc.GetByTrackingNumber(context.Background(), res.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, "Behind the library", got.DetailedAddress)
	assert.Equal(t, 1, gc.calls)
}

func TestSubmitIgnoresGeocoderFailure(t *testing.T) {
	gc := &fakeGeocoder{err: errors.New("quota exceeded")}
	f := newFixture(t, nil, gc)

	res, err := f.svc.Submit(context.Background(), theft(), nil)
	require.NoError(t, err)
	got, err := f.svc.GetByTrackingNumber(context.Background(), res.TrackingNumber)
	require.NoError(t, err)
	assert.Empty(t, got.DetailedAddress)
}

func TestGetByTrackingNumberNotFound(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.svc.GetByTrackingNumber(context.Background(), "CR99-9999")
	assert.True(t, apperr.IsNotFound(err), "got %v", err)
}

func TestUpdateStatusAppendsHistory(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	res, err := f.svc.Submit(ctx, theft(), nil)
	require.NoError(t, err)

	note := "officer assigned"
	upd, err := f.svc.UpdateStatus(ctx, res.TrackingNumber, "processing", &note)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, upd.Status)
	require.NotNil(t, upd.LatestUpdate)
	assert.Equal(t, StatusProcessing, upd.LatestUpdate.Status)
	assert.Equal(t, note, *upd.LatestUpdate.Comment)

	// transitions are permissive, including leaving RESOLVED
	for _, s := range []string{"RESOLVED", "PROCESSING", "PROCESSING"} {
		_, err := f.svc.UpdateStatus(ctx, res.TrackingNumber, s, nil)
		require.NoError(t, err, s)
	}

	got, err := f.svc.GetByTrackingNumber(ctx, res.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
	require.Len(t, got.StatusUpdates, 5)
	want := []Status{StatusProcessing, StatusProcessing, StatusResolved, StatusProcessing, StatusSubmitted}
	for i, su := range got.StatusUpdates {
		assert.Equal(t, want[i], su.Status, "update %d", i)
	}
	assert.Nil(t, got.StatusUpdates[0].Comment)
}

func TestUpdateStatusErrors(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	res, err := f.svc.Submit(ctx, theft(), nil)
	require.NoError(t, err)

	for _, s := range []string{"SUBMITTED", "CLOSED", ""} {
		_, err := f.svc.UpdateStatus(ctx, res.TrackingNumber, s, nil)
		assert.True(t, apperr.IsValidation(err), "%q: got %v", s, err)
	}

	_, err = f.svc.UpdateStatus(ctx, "CR99-9999", "RESOLVED", nil)
	assert.True(t, apperr.IsNotFound(err), "got %v", err)

	assert.EqualValues(t, 1, count(t, f.db, &StatusUpdate{}))
}

func TestListAll(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, theft(), stageFiles(t, "a.jpg"))
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, theft(), nil)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, first.TrackingNumber, "RESOLVED", nil)
	require.NoError(t, err)

	all, err := f.svc.ListAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.TrackingNumber, all[0].TrackingNumber)
	assert.Equal(t, first.TrackingNumber, all[1].TrackingNumber)
	assert.Len(t, all[1].Evidence, 1)
	assert.NotNil(t, all[0].Evidence)

	resolved, err := f.svc.ListAll(ctx, "resolved")
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, first.TrackingNumber, resolved[0].TrackingNumber)

	_, err = f.svc.ListAll(ctx, "ARCHIVED")
	assert.True(t, apperr.IsValidation(err))
}

func submitAt(t *testing.T, svc *Service, lat, lon string) string {
	t.Helper()
	in := theft()
	in.Latitude, in.Longitude = lat, lon
	res, err := svc.Submit(context.Background(), in, nil)
	require.NoError(t, err)
	return res.TrackingNumber
}

func TestFindNearby(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	here := submitAt(t, f.svc, "40.0", "-75.0")
	near := submitAt(t, f.svc, "40.01", "-75.0")    // ~1.1 km
	farther := submitAt(t, f.svc, "40.03", "-75.0") // ~3.3 km
	submitAt(t, f.svc, "40.5", "-75.0")             // ~55 km

	got, err := f.svc.FindNearby(ctx, 40.0, -75.0, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, here, got[0].TrackingNumber)
	assert.Equal(t, 0.0, got[0].Distance)
	assert.Equal(t, near, got[1].TrackingNumber)
	assert.InDelta(t, 1.11, got[1].Distance, 0.01)
	assert.Equal(t, farther, got[2].TrackingNumber)

	radius := 2.0
	got, err = f.svc.FindNearby(ctx, 40.0, -75.0, &radius)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFindNearbyIncludesEvidence(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, theft(), stageFiles(t, "a.jpg", "b.jpg"))
	require.NoError(t, err)
	submitAt(t, f.svc, "40.01", "-75.0")

	got, err := f.svc.FindNearby(ctx, 40.0, -75.0, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, res.TrackingNumber, got[0].TrackingNumber)
	require.Len(t, got[0].Evidence, 2)
	assert.Equal(t, "https://cdn.test/a.jpg", got[0].Evidence[0].FileURL)
	assert.Equal(t, "https://cdn.test/b.jpg", got[0].Evidence[1].FileURL)

	assert.NotNil(t, got[1].Evidence)
	assert.Empty(t, got[1].Evidence)
}

func TestFindNearbyZeroRadius(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	zero := 0.0

	got, err := f.svc.FindNearby(ctx, 40.0, -75.0, &zero)
	require.NoError(t, err)
	assert.Empty(t, got)

	here := submitAt(t, f.svc, "40.0", "-75.0")
	submitAt(t, f.svc, "40.0001", "-75.0")

	got, err = f.svc.FindNearby(ctx, 40.0, -75.0, &zero)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, here, got[0].TrackingNumber)
}

func TestFindNearbyValidation(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	neg, inf := -1.0, math.Inf(1)

	_, err := f.svc.FindNearby(ctx, math.NaN(), -75.0, nil)
	assert.True(t, apperr.IsValidation(err))
	_, err = f.svc.FindNearby(ctx, 40.0, -75.0, &neg)
	assert.True(t, apperr.IsValidation(err))
	_, err = f.svc.FindNearby(ctx, 40.0, -75.0, &inf)
	assert.True(t, apperr.IsValidation(err))
}

func TestParseEnums(t *testing.T) {
	typ, ok := ParseType(" vandalism ")
	assert.True(t, ok)
	assert.Equal(t, TypeVandalism, typ)

	_, ok = ParseType("burglary")
	assert.False(t, ok)

	st, ok := ParseStatus("Investigating")
	assert.True(t, ok)
	assert.True(t, st.Settable())
	assert.False(t, StatusSubmitted.Settable())
}
