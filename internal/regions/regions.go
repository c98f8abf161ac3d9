// Package regions derives filtered views and aggregates over location
// records. Pure functions; the input slice is never mutated.
package regions

import "github.com/infomapapp/parceldash/pkg/core"

// AllRegions is the sentinel filter value meaning "no filter".
const AllRegions = "All"

// unknownRegion is excluded from the distinct-region list.
const unknownRegion = "Unknown"

// Apply returns the records matching the region filter. An empty
// region or the "All" sentinel returns the input unchanged. Matching
// is a case-sensitive exact comparison; stored region values and
// filter selections are expected to share casing.
func Apply(records []core.LocationRecord, region string) []core.LocationRecord {
	if region == "" || region == AllRegions {
		return records
	}

	var filtered []core.LocationRecord
	for _, r := range records {
		if r.Region == region {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Stats computes the aggregates shown on the dashboard cards.
func Stats(records []core.LocationRecord) core.Stats {
	s := core.Stats{Count: len(records)}
	for _, r := range records {
		s.TotalUsers += r.Users
	}
	return s
}

// Distinct returns the unique region values in first-seen order with
// the "All" sentinel prepended. Empty and "Unknown" regions are
// dropped.
func Distinct(records []core.LocationRecord) []string {
	out := []string{AllRegions}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Region == "" || r.Region == unknownRegion {
			continue
		}
		if _, dup := seen[r.Region]; dup {
			continue
		}
		seen[r.Region] = struct{}{}
		out = append(out, r.Region)
	}
	return out
}
