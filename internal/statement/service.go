// Package statement implements the read-only financial statement proxy. Each
// unit's ledger lives in a Google spreadsheet; the service fetches the raw
// rows, normalizes them, applies date and competency filters, and computes
// aggregate statistics. Nothing is persisted or cached: every query reads the
// source sheets again.
package statement

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/autoescola-ideal/sistema-interno/internal/config"
	"github.com/autoescola-ideal/sistema-interno/internal/telemetry"
)

// AllUnits is the sentinel unit value that fans a query out to every
// configured sheet.
const AllUnits = "todas"

// ErrUnknownUnit is returned when a query names a unit with no configured
// spreadsheet source.
var ErrUnknownUnit = errors.New("unidade não configurada")

// RangeReader reads one spreadsheet range. Satisfied by sheets.Client.
type RangeReader interface {
	ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
}

// Filters narrows a statement query. Zero values mean "no filter"; dates are
// ISO YYYY-MM-DD and both bounds are inclusive.
type Filters struct {
	Unit       string `json:"unidade,omitempty" form:"unidade"`
	DateFrom   string `json:"dataInicio,omitempty" form:"dataInicio"`
	DateTo     string `json:"dataFim,omitempty" form:"dataFim"`
	Competency string `json:"competencia,omitempty" form:"competencia"`
}

// Bucket is one aggregation cell: how many rows and how much money.
type Bucket struct {
	Count  int     `json:"registros"`
	Amount float64 `json:"valor"`
}

// Stats aggregates a set of statement lines.
type Stats struct {
	TotalCount      int               `json:"totalRegistros"`
	TotalAmount     float64           `json:"valorTotal"`
	AverageAmount   float64           `json:"valorMedio"`
	ByUnit          map[string]Bucket `json:"porUnidade"`
	ByPaymentMethod map[string]Bucket `json:"porFormaPagamento"`
	ByMonth         map[string]Bucket `json:"porMes"`
}

// Result is a complete statement query response: the filtered lines, their
// aggregates, and the filters that produced them.
type Result struct {
	Lines   []Line  `json:"dados"`
	Stats   Stats   `json:"estatisticas"`
	Filters Filters `json:"filtros"`
}

// UnitSource describes one configured unit sheet.
type UnitSource struct {
	Key  string `json:"codigo"`
	Name string `json:"nome"`
}

// Health reports whether the statement source is usable.
type Health struct {
	Status    string    `json:"status"`
	Units     int       `json:"unidades"`
	TestRows  int       `json:"registrosTeste"`
	CheckedAt time.Time `json:"ultimoTeste"`
	Error     string    `json:"erro,omitempty"`
}

// Service fetches, normalizes, and aggregates statement data.
type Service struct {
	reader RangeReader
	units  map[string]config.SheetUnitConfig
}

// NewService builds a statement service over a range reader and the configured
// unit sheets. Unit keys are matched case-insensitively.
func NewService(reader RangeReader, units map[string]config.SheetUnitConfig) *Service {
	normalized := make(map[string]config.SheetUnitConfig, len(units))
	for key, cfg := range units {
		normalized[strings.ToLower(key)] = cfg
	}
	return &Service{reader: reader, units: normalized}
}

// Units lists every configured unit sheet in stable key order.
func (s *Service) Units() []UnitSource {
	keys := make([]string, 0, len(s.units))
	for key := range s.units {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sources := make([]UnitSource, 0, len(keys))
	for _, key := range keys {
		sources = append(sources, UnitSource{Key: key, Name: s.units[key].Name})
	}
	return sources
}

// HasUnit reports whether a unit key has a configured sheet.
func (s *Service) HasUnit(unit string) bool {
	_, ok := s.units[strings.ToLower(unit)]
	return ok
}

// fetchUnit reads and normalizes one unit's sheet.
func (s *Service) fetchUnit(ctx context.Context, unit string) ([]Line, error) {
	unit = strings.ToLower(unit)
	src, ok := s.units[unit]
	if !ok {
		return nil, ErrUnknownUnit
	}

	start := time.Now()
	rows, err := s.reader.ReadRange(ctx, src.SpreadsheetID, src.ReadRange)
	telemetry.SheetFetchDuration.WithLabelValues(unit).Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.SheetFetchErrorsTotal.WithLabelValues(unit).Inc()
		return nil, err
	}

	return normalizeRows(rows, src.Name), nil
}

// fetchAll reads every configured sheet concurrently and concatenates the
// results. A failing sheet contributes zero rows and a warn log; one broken
// spreadsheet must not take the whole statement view down.
func (s *Service) fetchAll(ctx context.Context) []Line {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		lines []Line
	)

	for key := range s.units {
		wg.Add(1)
		go func(unit string) {
			defer wg.Done()
			fetched, err := s.fetchUnit(ctx, unit)
			if err != nil {
				slog.Warn("statement: unit fetch failed, contributing zero rows", "unidade", unit, "error", err)
				return
			}
			mu.Lock()
			lines = append(lines, fetched...)
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	return lines
}

// Query runs a full statement query: fetch, filter, sort, aggregate.
// An unknown named unit returns ErrUnknownUnit; upstream failures for a known
// unit degrade to an empty result rather than an error.
func (s *Service) Query(ctx context.Context, f Filters) (*Result, error) {
	var lines []Line
	if f.Unit == "" || strings.EqualFold(f.Unit, AllUnits) {
		lines = s.fetchAll(ctx)
	} else {
		if !s.HasUnit(f.Unit) {
			return nil, ErrUnknownUnit
		}
		fetched, err := s.fetchUnit(ctx, f.Unit)
		if err != nil {
			slog.Warn("statement: unit fetch failed, returning empty statement", "unidade", f.Unit, "error", err)
			fetched = nil
		}
		lines = fetched
	}

	lines = applyFilters(lines, f)

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].PaymentDate > lines[j].PaymentDate
	})

	return &Result{
		Lines:   lines,
		Stats:   computeStats(lines),
		Filters: f,
	}, nil
}

// CheckHealth verifies the source is reachable by reading the first
// configured sheet.
func (s *Service) CheckHealth(ctx context.Context) Health {
	h := Health{Status: "OK", Units: len(s.units), CheckedAt: time.Now().UTC()}

	units := s.Units()
	if len(units) == 0 {
		h.Status = "ERRO"
		h.Error = "nenhuma planilha configurada"
		return h
	}

	lines, err := s.fetchUnit(ctx, units[0].Key)
	if err != nil {
		h.Status = "ERRO"
		h.Error = err.Error()
		return h
	}
	h.TestRows = len(lines)
	return h
}

// applyFilters keeps the lines matching every set filter. When any filter is
// active, lines without a parseable ISO date are dropped; an undated row
// cannot be placed inside or outside a date window.
func applyFilters(lines []Line, f Filters) []Line {
	if f.DateFrom == "" && f.DateTo == "" && f.Competency == "" {
		return lines
	}

	kept := make([]Line, 0, len(lines))
	for _, line := range lines {
		if _, err := time.Parse("2006-01-02", line.PaymentDate); err != nil {
			continue
		}
		if f.Competency != "" && line.PaymentDate[:7] != f.Competency {
			continue
		}
		if f.DateFrom != "" && line.PaymentDate < f.DateFrom {
			continue
		}
		if f.DateTo != "" && line.PaymentDate > f.DateTo {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

// computeStats aggregates lines into totals and per-dimension breakdowns.
func computeStats(lines []Line) Stats {
	stats := Stats{
		TotalCount:      len(lines),
		ByUnit:          make(map[string]Bucket),
		ByPaymentMethod: make(map[string]Bucket),
		ByMonth:         make(map[string]Bucket),
	}

	for _, line := range lines {
		stats.TotalAmount += line.Amount

		unit := stats.ByUnit[line.Unit]
		unit.Count++
		unit.Amount += line.Amount
		stats.ByUnit[line.Unit] = unit

		method := stats.ByPaymentMethod[line.PaymentMethod]
		method.Count++
		method.Amount += line.Amount
		stats.ByPaymentMethod[line.PaymentMethod] = method

		if line.Competency != "" {
			month := stats.ByMonth[line.Competency]
			month.Count++
			month.Amount += line.Amount
			stats.ByMonth[line.Competency] = month
		}
	}

	if stats.TotalCount > 0 {
		stats.AverageAmount = stats.TotalAmount / float64(stats.TotalCount)
	}
	return stats
}
