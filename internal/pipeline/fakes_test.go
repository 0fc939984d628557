package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/avisosperu/senamhi-tracker/internal/adapter/geoserver"
	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/shapefile"
	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeWarningStore keeps warnings in a map keyed by identity.
type fakeWarningStore struct {
	mu      sync.Mutex
	rows    map[domain.WarningKey]domain.Warning
	nextID  int64
	inserts int
	updates int
	findErr error
}

func newFakeWarningStore() *fakeWarningStore {
	return &fakeWarningStore{rows: map[domain.WarningKey]domain.Warning{}}
}

func (s *fakeWarningStore) FindWarning(_ context.Context, number, department string) (*domain.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	w, ok := s.rows[domain.WarningKey{Number: number, Department: department}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &w, nil
}

func (s *fakeWarningStore) InsertWarning(_ context.Context, w *domain.Warning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	w.ID = s.nextID
	s.rows[w.Key()] = *w
	s.inserts++
	return nil
}

func (s *fakeWarningStore) UpdateWarning(_ context.Context, w *domain.Warning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[w.Key()]; !ok {
		return storage.ErrNotFound
	}
	s.rows[w.Key()] = *w
	s.updates++
	return nil
}

func (s *fakeWarningStore) ListWarnings(context.Context, storage.WarningQuery) ([]domain.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Warning, 0, len(s.rows))
	for _, w := range s.rows {
		out = append(out, w)
	}
	return out, nil
}

func (s *fakeWarningStore) ActiveWarnings(_ context.Context, now time.Time) ([]domain.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Warning, 0)
	for _, w := range s.rows {
		if !now.After(w.ValidUntil) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *fakeWarningStore) get(number, department string) domain.Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[domain.WarningKey{Number: number, Department: department}]
}

// fakeGeometryStore records upserts keyed by (number, day, nivel).
type fakeGeometryStore struct {
	enabled bool
	rows    map[[3]any]domain.WarningGeometry
	upserts int
	deletes int
}

func newFakeGeometryStore() *fakeGeometryStore {
	return &fakeGeometryStore{enabled: true, rows: map[[3]any]domain.WarningGeometry{}}
}

func (g *fakeGeometryStore) Enabled() bool { return g.enabled }

func (g *fakeGeometryStore) HasGeometries(_ context.Context, number string) (bool, error) {
	for key := range g.rows {
		if key[0] == number {
			return true, nil
		}
	}
	return false, nil
}

func (g *fakeGeometryStore) UpsertGeometry(_ context.Context, geom *domain.WarningGeometry) error {
	g.rows[[3]any{geom.WarningNumber, geom.DayNumber, geom.Nivel}] = *geom
	g.upserts++
	return nil
}

func (g *fakeGeometryStore) GeometriesForWarning(_ context.Context, number string) ([]domain.WarningGeometry, error) {
	out := make([]domain.WarningGeometry, 0)
	for key, geom := range g.rows {
		if key[0] == number {
			out = append(out, geom)
		}
	}
	return out, nil
}

func (g *fakeGeometryStore) DeleteGeometries(_ context.Context, number string) (int64, error) {
	var n int64
	for key := range g.rows {
		if key[0] == number {
			delete(g.rows, key)
			n++
		}
	}
	g.deletes++
	return n, nil
}

// fakeRunStore appends run records in memory.
type fakeRunStore struct {
	runs   []*domain.ScrapeRun
	nextID int64
}

func (r *fakeRunStore) CreateRun(_ context.Context, run *domain.ScrapeRun) error {
	r.nextID++
	run.ID = r.nextID
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRunStore) FinishRun(_ context.Context, run *domain.ScrapeRun) error {
	for i, existing := range r.runs {
		if existing.ID == run.ID {
			r.runs[i] = run
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *fakeRunStore) RecentRuns(context.Context, int) ([]domain.ScrapeRun, error) {
	out := make([]domain.ScrapeRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, *run)
	}
	return out, nil
}

func (r *fakeRunStore) last() *domain.ScrapeRun {
	if len(r.runs) == 0 {
		return nil
	}
	return r.runs[len(r.runs)-1]
}

// fakeForecastStore implements just enough of the forecast persistence.
type fakeForecastStore struct {
	existing  bool
	existsErr error
	deleted   int
	saved     []domain.LocationForecast
	saveErr   error
	locations []domain.Location
	coords    map[int64][2]float64
}

func (f *fakeForecastStore) ForecastExistsForIssueDate(context.Context, time.Time) (bool, error) {
	return f.existing, f.existsErr
}

func (f *fakeForecastStore) DeleteForecastsByIssueDate(context.Context, time.Time) (int64, error) {
	f.deleted++
	return 3, nil
}

func (f *fakeForecastStore) GetOrCreateLocation(_ context.Context, name, department, fullName string) (*domain.Location, error) {
	return &domain.Location{ID: 1, Name: name, Department: department, FullName: fullName}, nil
}

func (f *fakeForecastStore) SetLocationCoordinates(_ context.Context, id int64, lat, lon float64) error {
	if f.coords == nil {
		f.coords = map[int64][2]float64{}
	}
	f.coords[id] = [2]float64{lat, lon}
	return nil
}

func (f *fakeForecastStore) ListLocations(context.Context) ([]domain.Location, error) {
	return f.locations, nil
}

func (f *fakeForecastStore) SaveLocationForecasts(_ context.Context, lf domain.LocationForecast) (int, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, lf)
	return len(lf.Forecasts), nil
}

func (f *fakeForecastStore) LatestForecasts(context.Context, int64) ([]domain.Forecast, error) {
	return nil, nil
}

func (f *fakeForecastStore) ForecastHistory(context.Context, int64, int) ([]domain.Forecast, error) {
	return nil, nil
}

// fakeWarningFetcher returns canned avisos per department.
type fakeWarningFetcher struct {
	avisos map[string][]domain.RawAviso
	errs   map[string]error
	calls  []string
}

func (f *fakeWarningFetcher) FetchAvisos(_ context.Context, department string) ([]domain.RawAviso, error) {
	f.calls = append(f.calls, department)
	if err := f.errs[department]; err != nil {
		return nil, err
	}
	return f.avisos[department], nil
}

// fakeForecastFetcher fails a fixed number of times before succeeding.
type fakeForecastFetcher struct {
	failures  int
	attempts  int
	forecasts []domain.LocationForecast
}

func (f *fakeForecastFetcher) FetchForecasts(context.Context, []string) ([]domain.LocationForecast, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return nil, errors.New("senamhi page unavailable")
	}
	return f.forecasts, nil
}

// fakeDownloader serves canned archives; errOnDay aborts that day.
type fakeDownloader struct {
	errOnDay int
	calls    []int
}

func (d *fakeDownloader) Download(_ context.Context, number string, day, year int) (geoserver.Download, error) {
	d.calls = append(d.calls, day)
	if d.errOnDay != 0 && day == d.errOnDay {
		return geoserver.Download{}, errors.New("geoserver error: status 502")
	}
	return geoserver.Download{
		Path: "/tmp/warning_" + number + ".zip",
		URL:  "https://geoserver.example/" + number,
	}, nil
}

// fakeParser returns canned features; errOnCall fails the nth Parse call.
type fakeParser struct {
	features  []shapefile.Feature
	errOnCall int
	calls     int
}

func (p *fakeParser) Parse(string) ([]shapefile.Feature, error) {
	p.calls++
	if p.errOnCall != 0 && p.calls == p.errOnCall {
		return nil, errors.New("no valid geometries")
	}
	return p.features, nil
}
