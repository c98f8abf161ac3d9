// pkg/core/record.go
package core

// LocationRecord is a tabular row describing a place, its region,
// coordinates and population. Consumed by the filter and the data
// grid; the filter never mutates it.
type LocationRecord struct {
	ID          int    `json:"id"`
	Location    string `json:"location"`
	Region      string `json:"region"`
	Coordinates string `json:"coordinates"` // "x,y" with 4-decimal fixed formatting
	Users       int    `json:"users"`
	Status      string `json:"status"`
	LastUpdated string `json:"lastUpdated"`
	ObjectID    int    `json:"OBJECTID,omitempty"`
}

// Stats are the aggregates computed over a filtered record set.
type Stats struct {
	Count      int
	TotalUsers int
}
