package models

// GeofenceSettings is the global geofence configuration consumed read-only
// at check-in time. Callers receive it as a snapshot so a mid-request admin
// change cannot split one check-in across two policies.
type GeofenceSettings struct {
	Enabled       bool    `db:"enabled" json:"enabled"`
	DefaultRadius float64 `db:"default_radius" json:"default_radius"`
}
