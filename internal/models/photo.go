package models

import (
	"time"
)

// Photo is the metadata record for one uploaded image. The bytes live on
// disk under <uploads root>/<trip id>/<filename>; OriginalName is whatever
// the client called the file and is only used for download headers.
type Photo struct {
	ID           int       `json:"id" db:"id"`
	TripID       int       `json:"tripId" db:"trip_id"`
	Filename     string    `json:"filename" db:"filename"`
	OriginalName string    `json:"originalName" db:"original_name"`
	CreatedAt    time.Time `json:"uploadDate" db:"created_at"`
}
