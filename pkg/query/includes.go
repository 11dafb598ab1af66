package query

// LookupSpec names one related entity to attach to a base query. Each spec
// expands to a $lookup + $unwind stage pair; the joined document lands under
// As and is omitted from the payload when absent. Many keeps the joined
// array as-is instead of unwinding, for local fields that hold id arrays.
type LookupSpec struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Many         bool
}

// ReservationIncludes selects the optional attachments of a reservation
// listing.
type ReservationIncludes struct {
	Profile     bool `json:"profile"`
	OpeningTime bool `json:"opening_time"`
	Location    bool `json:"location"`
}

func (inc ReservationIncludes) Lookups() []LookupSpec {
	var specs []LookupSpec
	if inc.Profile {
		specs = append(specs, LookupSpec{
			From:         "profiles",
			LocalField:   "profile_id",
			ForeignField: "_id",
			As:           "profile",
		})
	}
	if inc.OpeningTime {
		specs = append(specs, LookupSpec{
			From:         "opening_times",
			LocalField:   "opening_time_id",
			ForeignField: "_id",
			As:           "opening_time",
		})
	}
	if inc.Location {
		specs = append(specs, LookupSpec{
			From:         "locations",
			LocalField:   "location_id",
			ForeignField: "_id",
			As:           "location",
		})
	}
	return specs
}

// OpeningTimeIncludes selects the optional attachments of an opening-time
// listing.
type OpeningTimeIncludes struct {
	CreatedBy bool `json:"created_by"`
	Location  bool `json:"location"`
}

func (inc OpeningTimeIncludes) Lookups() []LookupSpec {
	var specs []LookupSpec
	if inc.CreatedBy {
		specs = append(specs, LookupSpec{
			From:         "profiles",
			LocalField:   "created_by",
			ForeignField: "_id",
			As:           "creator",
		})
	}
	if inc.Location {
		specs = append(specs, LookupSpec{
			From:         "locations",
			LocalField:   "location_id",
			ForeignField: "_id",
			As:           "location",
		})
	}
	return specs
}

// LocationIncludes selects the optional attachments of a location listing.
type LocationIncludes struct {
	Authority bool `json:"authority"`
	Tags      bool `json:"tags"`
}

func (inc LocationIncludes) Lookups() []LookupSpec {
	var specs []LookupSpec
	if inc.Authority {
		specs = append(specs, LookupSpec{
			From:         "authorities",
			LocalField:   "authority_id",
			ForeignField: "_id",
			As:           "authority",
		})
	}
	if inc.Tags {
		specs = append(specs, LookupSpec{
			From:         "tags",
			LocalField:   "tag_ids",
			ForeignField: "_id",
			As:           "tags",
			Many:         true,
		})
	}
	return specs
}
