package model

// Listing rows are the aggregation results of the include-aware list queries.
// Joined documents are pointers so an unrequested or unmatched include is
// simply absent from the payload.

type OpeningTimeRow struct {
	OpeningTime `bson:",inline"`
	Creator     *Profile  `json:"creator,omitempty" bson:"creator,omitempty"`
	Location    *Location `json:"location,omitempty" bson:"location,omitempty"`
}

type ReservationRow struct {
	Reservation `bson:",inline"`
	Profile     *Profile     `json:"profile,omitempty" bson:"profile,omitempty"`
	OpeningTime *OpeningTime `json:"opening_time,omitempty" bson:"opening_time,omitempty"`
	Location    *Location    `json:"location,omitempty" bson:"location,omitempty"`
}

type LocationRow struct {
	Location  `bson:",inline"`
	Authority *Authority `json:"authority,omitempty" bson:"authority,omitempty"`
	Tags      []Tag      `json:"tags,omitempty" bson:"tags,omitempty"`
}
