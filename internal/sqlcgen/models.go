package sqlcgen

import "time"

type NetworkSnapshot struct {
	ID          string
	CreatedAt   time.Time
	Reason      string
	Substations int32
	Lines       int32
	Dropped     int32
	Partitioned []byte
	Flat        []byte
}
