package influx

import (
	"context"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/infomapapp/parceldash/internal/regions"
	"github.com/infomapapp/parceldash/pkg/core"
)

// Reporter periodically writes dashboard usage stats to InfluxDB.
type Reporter struct {
	mgr    *Manager
	logger zerolog.Logger
}

// NewReporter creates a Reporter over an initialized manager.
func NewReporter(mgr *Manager, logger zerolog.Logger) *Reporter {
	return &Reporter{mgr: mgr, logger: logger}
}

// Report writes one snapshot of the current record and annotation
// state. Individual write failures are logged, not returned, so a
// broken reporter never degrades the dashboard.
func (r *Reporter) Report(ctx context.Context, records []core.LocationRecord, annotationCount int) {
	now := time.Now()

	for _, p := range RegionPoints(records, now) {
		if err := r.mgr.WritePoint(ctx, "population_stats", p); err != nil {
			r.logger.Error().Err(err).Msg("Error writing region stats point")
		}
	}

	if err := r.mgr.WritePoint(ctx, "annotation_activity", AnnotationPoint(annotationCount, now)); err != nil {
		r.logger.Error().Err(err).Msg("Error writing annotation point")
	}
}

// Run reports on the given interval until the context is cancelled.
func (r *Reporter) Run(ctx context.Context, interval time.Duration, snapshot func() ([]core.LocationRecord, int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			records, count := snapshot()
			r.Report(ctx, records, count)
		}
	}
}

// RegionPoints builds one measurement per region plus an overall total.
func RegionPoints(records []core.LocationRecord, ts time.Time) []*influxdb2_write.Point {
	points := make([]*influxdb2_write.Point, 0, len(records)+1)

	for _, region := range regions.Distinct(records) {
		if region == regions.AllRegions {
			continue
		}
		stats := regions.Stats(regions.Apply(records, region))
		points = append(points, influxdb2_write.NewPoint(
			"region_population",
			map[string]string{"region": region},
			map[string]interface{}{
				"locations":   stats.Count,
				"total_users": stats.TotalUsers,
			},
			ts,
		))
	}

	total := regions.Stats(records)
	points = append(points, influxdb2_write.NewPoint(
		"region_population",
		map[string]string{"region": "total"},
		map[string]interface{}{
			"locations":   total.Count,
			"total_users": total.TotalUsers,
		},
		ts,
	))

	return points
}

// AnnotationPoint builds the saved-drawing count measurement.
func AnnotationPoint(count int, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"annotations",
		nil,
		map[string]interface{}{"count": count},
		ts,
	)
}
