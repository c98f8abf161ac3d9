package influx

import (
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infomapapp/parceldash/pkg/core"
)

func lineFor(points []*influxdb2_write.Point, region string) string {
	for _, p := range points {
		line := influxdb2_write.PointToLineProtocol(p, time.Second)
		if strings.Contains(line, "region="+region+" ") {
			return line
		}
	}
	return ""
}

func TestRegionPoints(t *testing.T) {
	records := []core.LocationRecord{
		{ID: 1, Location: "Marina", Region: "Dubai", Users: 100},
		{ID: 2, Location: "Corniche", Region: "Abu Dhabi", Users: 75},
		{ID: 3, Location: "Creek", Region: "Dubai", Users: 50},
	}

	points := RegionPoints(records, time.Unix(1000, 0))
	require.Len(t, points, 3, "two regions plus the total")

	dubai := lineFor(points, "Dubai")
	assert.Contains(t, dubai, "region_population")
	assert.Contains(t, dubai, "locations=2i")
	assert.Contains(t, dubai, "total_users=150i")

	abuDhabi := lineFor(points, "Abu\\ Dhabi")
	assert.Contains(t, abuDhabi, "locations=1i")
	assert.Contains(t, abuDhabi, "total_users=75i")

	total := lineFor(points, "total")
	assert.Contains(t, total, "locations=3i")
	assert.Contains(t, total, "total_users=225i")
}

func TestRegionPointsEmpty(t *testing.T) {
	points := RegionPoints(nil, time.Unix(1000, 0))
	require.Len(t, points, 1)

	total := influxdb2_write.PointToLineProtocol(points[0], time.Second)
	assert.Contains(t, total, "locations=0i")
	assert.Contains(t, total, "total_users=0i")
}

func TestAnnotationPoint(t *testing.T) {
	line := influxdb2_write.PointToLineProtocol(AnnotationPoint(7, time.Unix(1000, 0)), time.Second)
	assert.True(t, strings.HasPrefix(line, "annotations "))
	assert.Contains(t, line, "count=7i")
}
