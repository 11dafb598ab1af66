// Package query is the listing engine: a closed set of filter fragments that
// AND-compose into one Mongo predicate, include specifications that expand
// into $lookup stages, and the hard-capped pipeline builder every listing
// repository goes through.
package query

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Filter is one composable predicate fragment. A fragment with no criteria
// set returns an empty document and contributes nothing to the query.
type Filter interface {
	ToFilter() bson.M
}

// And composes fragments by conjunction. Order is irrelevant; empty fragments
// are skipped entirely so partial filter criteria never produce degenerate
// predicates.
func And(filters ...Filter) bson.M {
	var clauses []bson.M
	for _, f := range filters {
		if f == nil {
			continue
		}
		clause := f.ToFilter()
		if len(clause) == 0 {
			continue
		}
		clauses = append(clauses, clause)
	}

	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0]
	default:
		return bson.M{"$and": clauses}
	}
}

// DayFilter matches opening times on an exact calendar day.
type DayFilter struct {
	Day *time.Time
}

func (f DayFilter) ToFilter() bson.M {
	if f.Day == nil {
		return bson.M{}
	}
	day := f.Day.UTC().Truncate(24 * time.Hour)
	return bson.M{"day": day}
}

// DateBoundsFilter matches opening times whose day falls within the inclusive
// [StartDate, EndDate] range; either bound may be absent.
type DateBoundsFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
}

func (f DateBoundsFilter) ToFilter() bson.M {
	bounds := bson.M{}
	if f.StartDate != nil {
		bounds["$gte"] = f.StartDate.UTC().Truncate(24 * time.Hour)
	}
	if f.EndDate != nil {
		bounds["$lte"] = f.EndDate.UTC().Truncate(24 * time.Hour)
	}
	if len(bounds) == 0 {
		return bson.M{}
	}
	return bson.M{"day": bounds}
}

// WallClockFilter matches opening times whose window covers the given "HH:MM"
// instant. Zero-padded wall-clock strings order lexicographically, so plain
// string comparison is exact.
type WallClockFilter struct {
	OpenAt string
}

func (f WallClockFilter) ToFilter() bson.M {
	if f.OpenAt == "" {
		return bson.M{}
	}
	return bson.M{
		"start_time": bson.M{"$lte": f.OpenAt},
		"end_time":   bson.M{"$gte": f.OpenAt},
	}
}

// LocationFilter matches documents belonging to one location.
type LocationFilter struct {
	LocationID string
}

func (f LocationFilter) ToFilter() bson.M {
	if f.LocationID == "" {
		return bson.M{}
	}
	return bson.M{"location_id": f.LocationID}
}

// AuthorityFilter matches documents belonging to one authority.
type AuthorityFilter struct {
	AuthorityID string
}

func (f AuthorityFilter) ToFilter() bson.M {
	if f.AuthorityID == "" {
		return bson.M{}
	}
	return bson.M{"authority_id": f.AuthorityID}
}

// InstitutionFilter matches documents belonging to one institution.
type InstitutionFilter struct {
	InstitutionID string
}

func (f InstitutionFilter) ToFilter() bson.M {
	if f.InstitutionID == "" {
		return bson.M{}
	}
	return bson.M{"institution_id": f.InstitutionID}
}

// ProfileFilter matches documents owned by one profile.
type ProfileFilter struct {
	ProfileID string
}

func (f ProfileFilter) ToFilter() bson.M {
	if f.ProfileID == "" {
		return bson.M{}
	}
	return bson.M{"profile_id": f.ProfileID}
}

// OpeningTimeFilter matches reservations against one opening time.
type OpeningTimeFilter struct {
	OpeningTimeID string
}

func (f OpeningTimeFilter) ToFilter() bson.M {
	if f.OpeningTimeID == "" {
		return bson.M{}
	}
	return bson.M{"opening_time_id": f.OpeningTimeID}
}

// StateFilter matches reservations in any of the given states.
type StateFilter struct {
	States []string
}

func (f StateFilter) ToFilter() bson.M {
	if len(f.States) == 0 {
		return bson.M{}
	}
	if len(f.States) == 1 {
		return bson.M{"state": f.States[0]}
	}
	return bson.M{"state": bson.M{"$in": f.States}}
}

// CityFilter matches locations by exact (sanitized) city name.
type CityFilter struct {
	City string
}

func (f CityFilter) ToFilter() bson.M {
	if f.City == "" {
		return bson.M{}
	}
	return bson.M{"city": f.City}
}

// TagFilter matches locations labeled with one tag. tag_ids is an array
// field, so plain equality matches any element.
type TagFilter struct {
	TagID string
}

func (f TagFilter) ToFilter() bson.M {
	if f.TagID == "" {
		return bson.M{}
	}
	return bson.M{"tag_ids": f.TagID}
}

// CategoryFilter matches institutions by category.
type CategoryFilter struct {
	Category string
}

func (f CategoryFilter) ToFilter() bson.M {
	if f.Category == "" {
		return bson.M{}
	}
	return bson.M{"category": f.Category}
}

// RetiredFilter excludes soft-retired documents unless asked to include them.
type RetiredFilter struct {
	IncludeRetired bool
}

func (f RetiredFilter) ToFilter() bson.M {
	if f.IncludeRetired {
		return bson.M{}
	}
	return bson.M{"retired": bson.M{"$ne": true}}
}
