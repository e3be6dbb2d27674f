package sequence

import (
	"fmt"
	"strings"
	"time"

	"pharmadesk/internal/core/apperror"
)

// Scope controls whether a counter is shared forever or per calendar month.
type Scope string

const (
	// ScopeNever draws from a single counter for the lifetime of the data.
	ScopeNever Scope = "never"

	// ScopeMonthly draws from a counter keyed by year and month.
	// The numbering restarts at 1 in every new month.
	ScopeMonthly Scope = "monthly"
)

// MaxWidth bounds padding so that formatted IDs stay printable as int64.
const MaxWidth = 18

// Pattern describes how the business IDs of one record type are minted.
type Pattern struct {
	// Name is the base counter name (e.g. "medicine", "order")
	Name string `mapstructure:"name" json:"name"`

	// Prefix is prepended to every ID (e.g. "MED", "ORD")
	Prefix string `mapstructure:"prefix" json:"prefix"`

	// Width is the minimum number of digits in the numeric part
	Width int `mapstructure:"width" json:"width"`

	// Scope is ScopeNever or ScopeMonthly
	Scope Scope `mapstructure:"scope" json:"scope"`
}

// Validate checks the pattern configuration.
func (p Pattern) Validate() error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if strings.TrimSpace(p.Prefix) == "" {
		return apperror.NewValidation("id prefix is required").WithDetail("sequence", p.Name)
	}
	if p.Width < 1 || p.Width > MaxWidth {
		return apperror.NewValidation(fmt.Sprintf("id width must be between 1 and %d", MaxWidth)).
			WithDetail("sequence", p.Name).
			WithDetail("width", p.Width)
	}
	switch p.Scope {
	case ScopeNever, ScopeMonthly:
	default:
		return apperror.NewValidation("unknown sequence scope").
			WithDetail("sequence", p.Name).
			WithDetail("scope", string(p.Scope))
	}
	return nil
}

// Key returns the counter name to draw from at time t.
// Monthly patterns use "<name>-<YYYYMM>", e.g. "order-202501".
func (p Pattern) Key(t time.Time) string {
	if p.Scope == ScopeMonthly {
		return fmt.Sprintf("%s-%04d%02d", p.Name, t.Year(), int(t.Month()))
	}
	return p.Name
}

// Format renders the business ID for seq drawn at time t.
func (p Pattern) Format(seq int64, t time.Time) (string, error) {
	if p.Scope == ScopeMonthly {
		return FormatDatedID(p.Prefix, t.Year(), int(t.Month()), seq, p.Width)
	}
	return FormatPaddedID(p.Prefix, seq, p.Width)
}

// IDPrefix returns the part shared by every ID formatted at time t,
// e.g. "MED" or "ORD-202501-".
func (p Pattern) IDPrefix(t time.Time) string {
	if p.Scope == ScopeMonthly {
		return fmt.Sprintf("%s-%04d%02d-", p.Prefix, t.Year(), int(t.Month()))
	}
	return p.Prefix
}

// Standard patterns. Prefix and width may be overridden from configuration.
var (
	MedicinePattern     = Pattern{Name: "medicine", Prefix: "MED", Width: 5, Scope: ScopeNever}
	ChemicalPattern     = Pattern{Name: "chemical", Prefix: "CHM", Width: 5, Scope: ScopeNever}
	EquipmentPattern    = Pattern{Name: "equipment", Prefix: "EQP", Width: 5, Scope: ScopeNever}
	PatientPattern      = Pattern{Name: "patient", Prefix: "PAT", Width: 5, Scope: ScopeNever}
	OrderPattern        = Pattern{Name: "order", Prefix: "ORD", Width: 3, Scope: ScopeMonthly}
	PrescriptionPattern = Pattern{Name: "prescription", Prefix: "RX", Width: 4, Scope: ScopeMonthly}
)

// DefaultPatterns returns the standard patterns keyed by name.
func DefaultPatterns() map[string]Pattern {
	out := make(map[string]Pattern)
	for _, p := range []Pattern{
		MedicinePattern, ChemicalPattern, EquipmentPattern,
		PatientPattern, OrderPattern, PrescriptionPattern,
	} {
		out[p.Name] = p
	}
	return out
}
