/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package failover picks the live replica among redundant backup locations
// that share a failover group tag.
package failover

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/models"
)

// FreshnessWindow is how recent the best candidate's probed activity must
// be before it is trusted over plain declaration order.
const FreshnessWindow = 7 * 24 * time.Hour

// Prober abstracts the shallow location checks, keeping the selector
// independent of the filesystem backend.
type Prober interface {
	// ProbeActivity returns the most recent modification time among the
	// immediate children of path, or false when no activity is observable.
	ProbeActivity(path string) (time.Time, bool)

	// IsAccessibleDir reports whether path exists and is a directory.
	IsAccessibleDir(path string) bool
}

// Selector evaluates failover groups.
type Selector struct {
	prober Prober
	logger zerolog.Logger
	now    func() time.Time
}

// NewSelector creates a failover selector.
func NewSelector(prober Prober, logger zerolog.Logger) *Selector {
	return &Selector{
		prober: prober,
		logger: logger.With().Str("component", "failover").Logger(),
		now:    time.Now,
	}
}

// GroupLocations splits locations into failover groups (two or more
// members sharing a non-empty tag) and standalone locations. A lone tagged
// location behaves as standalone. Declared order is preserved within each
// group.
func GroupLocations(locations []models.Location) (map[string][]models.Location, []models.Location) {
	groups := make(map[string][]models.Location)
	for _, loc := range locations {
		if loc.FailoverGroup != "" {
			groups[loc.FailoverGroup] = append(groups[loc.FailoverGroup], loc)
		}
	}

	var standalone []models.Location
	for _, loc := range locations {
		if loc.FailoverGroup == "" || len(groups[loc.FailoverGroup]) < 2 {
			standalone = append(standalone, loc)
		}
	}

	for group, members := range groups {
		if len(members) < 2 {
			delete(groups, group)
		}
	}
	return groups, standalone
}

// SelectActive picks the live candidate in a failover group, or nil when
// none is accessible. The candidate with the latest probed activity wins
// if that activity passes the freshness gate; otherwise the first
// accessible candidate in declared order is chosen regardless of recency.
func (s *Selector) SelectActive(locations []models.Location) *models.Location {
	var best *models.Location
	var bestActivity time.Time

	for i := range locations {
		loc := &locations[i]
		activity, ok := s.probe(loc)
		if !ok {
			s.logger.Debug().Str("location", loc.Name).Msg("no activity found")
			continue
		}

		s.logger.Debug().Str("location", loc.Name).Time("activity", activity).Msg("probed activity")

		if best == nil || activity.After(bestActivity) {
			bestActivity = activity
			best = loc
		}
	}

	if best != nil {
		age := s.now().Sub(bestActivity)
		if age <= FreshnessWindow {
			s.logger.Info().
				Str("location", best.Name).
				Dur("activity_age", age).
				Msg("selected active location")
			return best
		}
		s.logger.Warn().
			Str("location", best.Name).
			Dur("activity_age", age).
			Msg("best candidate has stale activity, falling back to declared order")
	}

	// No candidate passed the freshness gate: take the first accessible one
	// in declared order. A stale but reachable replica beats a fresher
	// looking one we cannot read.
	for i := range locations {
		loc := &locations[i]
		if loc.Kind != models.LocationLocal {
			continue
		}
		if s.prober.IsAccessibleDir(loc.Path) {
			s.logger.Info().Str("location", loc.Name).Msg("selected fallback location (no recent activity found)")
			return loc
		}
	}

	return nil
}

// probe runs the activity check for one candidate. Probe failures,
// including unknown location kinds, count as "no activity" and never abort
// the group's evaluation.
func (s *Selector) probe(loc *models.Location) (time.Time, bool) {
	if loc.Kind != models.LocationLocal {
		s.logger.Warn().Str("location", loc.Name).Str("type", string(loc.Kind)).Msg("cannot probe unknown location type")
		return time.Time{}, false
	}
	return s.prober.ProbeActivity(loc.Path)
}

// PlaceholderName is the synthetic result key used when a failover group
// has no accessible candidate.
func PlaceholderName(group string) string {
	return fmt.Sprintf("No Active Location (%s)", group)
}

// PlaceholderResult is the single error entry recorded for an entirely
// unavailable failover group.
func PlaceholderResult(group string) []models.DirectoryStats {
	return []models.DirectoryStats{
		models.ErrorStats("/unavailable", fmt.Sprintf("No active location found in failover group '%s'", group)),
	}
}
