// Package sequences provides administration of the business ID counters:
// inspection, manual resets and re-synchronisation after bulk imports.
package sequences

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/domain/audit"
	"pharmadesk/pkg/logger"
)

// IDSource reads the business IDs already stored for one pattern.
type IDSource interface {
	// LastBusinessID returns the highest business ID made of prefix and
	// digits only, comparing by length first so that MED100000 sorts after
	// MED99999. Supplied IDs of any other shape are ignored.
	LastBusinessID(ctx context.Context, prefix string) (string, bool, error)
}

// Info describes one counter.
type Info struct {
	Name    string `json:"name"`
	Value   int64  `json:"value"`
	Pattern string `json:"pattern,omitempty"`

	// NextID previews the ID the next draw would format
	NextID string `json:"nextId,omitempty"`
}

// SyncResult reports one re-synchronised counter.
type SyncResult struct {
	Pattern  string `json:"pattern"`
	Key      string `json:"key"`
	LastID   string `json:"lastId,omitempty"`
	Previous int64  `json:"previous"`
	Value    int64  `json:"value"`
	Changed  bool   `json:"changed"`
}

// Service administers counters.
type Service struct {
	counter  sequence.Counter
	patterns map[string]sequence.Pattern
	sources  map[string]IDSource
	audit    audit.Recorder
	now      func() time.Time
}

// NewService creates a counter administration service.
func NewService(counter sequence.Counter, patterns map[string]sequence.Pattern, rec audit.Recorder) *Service {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service{
		counter:  counter,
		patterns: patterns,
		sources:  make(map[string]IDSource),
		audit:    rec,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterSource attaches the record store of a pattern for Sync.
func (s *Service) RegisterSource(patternName string, src IDSource) {
	s.sources[patternName] = src
}

// Patterns returns the configured patterns ordered by name.
func (s *Service) Patterns() []sequence.Pattern {
	out := make([]sequence.Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// List returns all stored counters.
func (s *Service) List(ctx context.Context) ([]sequence.Sequence, error) {
	return s.counter.List(ctx)
}

// Get returns the value of counter name and, when the name belongs to a
// pattern, the ID the next draw would produce.
func (s *Service) Get(ctx context.Context, name string) (Info, error) {
	if err := sequence.ValidateName(name); err != nil {
		return Info{}, err
	}

	value, err := s.counter.Current(ctx, name)
	if err != nil {
		return Info{}, err
	}

	info := Info{Name: name, Value: value}
	if p, at, ok := s.resolve(name); ok {
		info.Pattern = p.Name
		if next, err := p.Format(value+1, at); err == nil {
			info.NextID = next
		}
	}
	return info, nil
}

// Set overwrites counter name. Lowering a counter can make the allocator
// re-issue IDs that are taken; those collide and are retried once.
func (s *Service) Set(ctx context.Context, name string, value int64) error {
	if err := sequence.ValidateName(name); err != nil {
		return err
	}
	if err := sequence.ValidateValue(value); err != nil {
		return err
	}

	previous, err := s.counter.Current(ctx, name)
	if err != nil {
		return err
	}

	if err := s.counter.Set(ctx, name, value); err != nil {
		return err
	}

	if value < previous {
		logger.Warn(ctx, "sequence counter lowered",
			"sequence", name,
			"from", previous,
			"to", value)
	}

	return s.audit.LogChange(ctx, audit.EntitySequence, id.Nil, name, audit.ActionSequenceSet,
		map[string]any{"from": previous, "to": value})
}

// Sync raises the counter of pattern for the period of at to the highest
// number already stored. The raise is a single atomic step in the counter
// store, so draws that happen meanwhile are never undone and counters are
// never lowered.
func (s *Service) Sync(ctx context.Context, patternName string, at time.Time) (SyncResult, error) {
	p, ok := s.patterns[patternName]
	if !ok {
		return SyncResult{}, apperror.NewNotFound("sequence pattern", patternName)
	}
	src, ok := s.sources[patternName]
	if !ok {
		return SyncResult{}, apperror.NewValidation("pattern has no record store to sync from").
			WithDetail("pattern", patternName)
	}

	res := SyncResult{Pattern: p.Name, Key: p.Key(at)}

	previous, err := s.counter.Current(ctx, res.Key)
	if err != nil {
		return res, err
	}
	res.Previous, res.Value = previous, previous

	prefix := p.IDPrefix(at)
	last, found, err := src.LastBusinessID(ctx, prefix)
	if err != nil {
		return res, err
	}
	if !found {
		return res, nil
	}
	res.LastID = last

	seq, ok := generatedSeq(last, prefix)
	if !ok || seq <= previous {
		return res, nil
	}

	value, err := s.counter.Raise(ctx, res.Key, seq)
	if err != nil {
		return res, err
	}
	res.Value = value
	if value != seq {
		// draws overtook the stored maximum before the raise
		return res, nil
	}
	res.Changed = true

	logger.Info(ctx, "sequence counter synchronised",
		"sequence", res.Key,
		"last_id", last,
		"from", previous,
		"to", seq)

	return res, s.audit.LogChange(ctx, audit.EntitySequence, id.Nil, res.Key, audit.ActionSequenceSet,
		map[string]any{"from": previous, "to": seq, "last_id": last})
}

// generatedSeq returns the number of a business ID shaped like prefix
// followed by digits only.
func generatedSeq(businessID, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(businessID, prefix)
	if !ok || rest == "" || strings.TrimLeft(rest, "0123456789") != "" {
		return 0, false
	}
	seq, ok := sequence.ParseSeq(rest)
	if !ok || seq < 1 {
		return 0, false
	}
	return seq, true
}

// SyncAll syncs every pattern with a registered source for the current
// period.
func (s *Service) SyncAll(ctx context.Context) ([]SyncResult, error) {
	at := s.now()
	var out []SyncResult
	for _, p := range s.Patterns() {
		if _, ok := s.sources[p.Name]; !ok {
			continue
		}
		res, err := s.Sync(ctx, p.Name, at)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// resolve maps a counter key back to its pattern and period.
// "medicine" maps to the medicine pattern, "order-202501" to the order
// pattern in January 2025.
func (s *Service) resolve(key string) (sequence.Pattern, time.Time, bool) {
	if p, ok := s.patterns[key]; ok && p.Scope != sequence.ScopeMonthly {
		return p, s.now(), true
	}

	base, period, ok := strings.Cut(key, "-")
	if !ok || len(period) != 6 {
		return sequence.Pattern{}, time.Time{}, false
	}
	p, ok := s.patterns[base]
	if !ok || p.Scope != sequence.ScopeMonthly {
		return sequence.Pattern{}, time.Time{}, false
	}
	year, err1 := strconv.Atoi(period[:4])
	month, err2 := strconv.Atoi(period[4:])
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		return sequence.Pattern{}, time.Time{}, false
	}
	return p, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}
