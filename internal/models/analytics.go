package models

import (
	"strings"
	"time"
)

// Granularity selects the calendar bucket used for time series.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
	GranularityHourly  Granularity = "hourly"
)

// PopulationFilter scopes population analytics to a subset of users.
type PopulationFilter struct {
	Cohort string
	From   *time.Time
	To     *time.Time
	Active *bool
}

// Matches reports whether the user satisfies every predicate set on the filter.
// From/To bound the registration timestamp; users without one are excluded when a bound is set.
func (f PopulationFilter) Matches(u User) bool {
	if f.Cohort != "" && !strings.EqualFold(strings.TrimSpace(u.CohortApplied), f.Cohort) {
		return false
	}
	if f.Active != nil && u.IsActive != *f.Active {
		return false
	}
	if f.From != nil || f.To != nil {
		if u.CreatedAt == nil {
			return false
		}
		if f.From != nil && u.CreatedAt.Before(*f.From) {
			return false
		}
		if f.To != nil && u.CreatedAt.After(*f.To) {
			return false
		}
	}
	return true
}

// IsZero reports whether no predicate is set.
func (f PopulationFilter) IsZero() bool {
	return f.Cohort == "" && f.From == nil && f.To == nil && f.Active == nil
}

// UserListFilter narrows store reads of users.
type UserListFilter struct {
	Cohort string
}
