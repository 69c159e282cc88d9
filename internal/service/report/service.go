package report

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/metrics"
	reportmodel "github.com/crowdshield/dashboard/backend/internal/model/report"
	"github.com/crowdshield/dashboard/backend/internal/service/translate"
)

const (
	defaultSeverity = "medium"
	defaultLimit    = 50
	maxLimit        = 500
)

var (
	ErrEmptyQuery = errors.New("search query is empty")
	ErrEmptyType  = errors.New("report type is empty")
)

// Service records incident reports and answers list and text queries.
type Service struct {
	store  Store
	index  *Index
	now    func() time.Time
	logger *zap.Logger
}

// NewService wires a store and an optional index. A nil store falls back to
// memory.
func NewService(store Store, index *Index, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Service{
		store:  store,
		index:  index,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.Named("report"),
	}
}

// Create stores a new report. The index is best effort: a failed index
// update is logged and the report is still returned.
func (s *Service) Create(ctx context.Context, req reportmodel.CreateRequest) (reportmodel.Report, error) {
	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		return reportmodel.Report{}, ErrEmptyType
	}
	severity := strings.ToLower(strings.TrimSpace(req.Severity))
	if severity == "" {
		severity = defaultSeverity
	}
	note := strings.TrimSpace(req.Note)

	r := reportmodel.Report{
		ID:        uuid.NewString(),
		Type:      kind,
		Severity:  severity,
		Note:      note,
		Lat:       req.Lat,
		Lon:       req.Lon,
		State:     strings.TrimSpace(req.State),
		Language:  translate.DetectLanguage(note),
		CreatedAt: s.now(),
	}
	if err := s.store.Save(ctx, r); err != nil {
		return reportmodel.Report{}, err
	}
	metrics.ReportsTotal.WithLabelValues(r.Type).Inc()

	if s.index != nil {
		if err := s.index.Add(r); err != nil {
			s.logger.Warn("index report failed", zap.String("id", r.ID), zap.Error(err))
		}
	}
	s.logger.Info("report recorded",
		zap.String("id", r.ID),
		zap.String("type", r.Type),
		zap.String("severity", r.Severity),
		zap.String("state", r.State),
	)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (reportmodel.Report, error) {
	return s.store.Get(ctx, id)
}

// List returns the newest reports, optionally for one state.
func (s *Service) List(ctx context.Context, state string, limit int) ([]reportmodel.Report, error) {
	return s.store.List(ctx, strings.TrimSpace(state), clampLimit(limit))
}

// Search matches q against report notes, types and states. Without an index it
// falls back to a substring scan over the store.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]reportmodel.Report, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	limit = clampLimit(limit)

	if s.index == nil {
		return s.scan(ctx, q, limit)
	}

	ids, err := s.index.Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	out := make([]reportmodel.Report, 0, len(ids))
	for _, id := range ids {
		r, err := s.store.Get(ctx, id)
		if errors.Is(err, ErrReportNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) scan(ctx context.Context, q string, limit int) ([]reportmodel.Report, error) {
	all, err := s.store.List(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)
	var out []reportmodel.Report
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.Note), needle) || strings.Contains(strings.ToLower(r.Type), needle) ||
			strings.EqualFold(r.State, q) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Notes returns the note text of the newest reports for state.
func (s *Service) Notes(ctx context.Context, state string, limit int) []string {
	reports, err := s.List(ctx, state, limit)
	if err != nil {
		s.logger.Warn("list reports failed", zap.String("state", state), zap.Error(err))
		return nil
	}
	notes := make([]string, 0, len(reports))
	for _, r := range reports {
		if r.Note != "" {
			notes = append(notes, r.Note)
		}
	}
	return notes
}

func (s *Service) Close() error {
	var errs []error
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
