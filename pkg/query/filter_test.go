package query

import (
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestAnd_SkipsEmptyFragments(t *testing.T) {
	match := And(
		LocationFilter{},
		DayFilter{},
		WallClockFilter{},
		StateFilter{},
	)

	if len(match) != 0 {
		t.Errorf("all-empty composition must produce an empty predicate, got %v", match)
	}
}

func TestAnd_SingleClauseIsUnwrapped(t *testing.T) {
	match := And(
		LocationFilter{LocationID: "64f000000000000000000002"},
		DayFilter{},
	)

	want := bson.M{"location_id": "64f000000000000000000002"}
	if !reflect.DeepEqual(match, want) {
		t.Errorf("expected unwrapped clause %v, got %v", want, match)
	}
}

func TestAnd_MultipleClausesConjoin(t *testing.T) {
	day := time.Date(2026, 9, 14, 15, 30, 0, 0, time.UTC)
	match := And(
		LocationFilter{LocationID: "64f000000000000000000002"},
		DayFilter{Day: &day},
	)

	clauses, ok := match["$and"].([]bson.M)
	if !ok || len(clauses) != 2 {
		t.Fatalf("expected an $and of 2 clauses, got %v", match)
	}
	if clauses[1]["day"] != day.Truncate(24*time.Hour) {
		t.Errorf("day must be truncated to midnight UTC, got %v", clauses[1]["day"])
	}
}

func TestWallClockFilter_CoversInstant(t *testing.T) {
	match := WallClockFilter{OpenAt: "09:30"}.ToFilter()

	start, ok := match["start_time"].(bson.M)
	if !ok || start["$lte"] != "09:30" {
		t.Errorf("expected start_time $lte 09:30, got %v", match)
	}
	end, ok := match["end_time"].(bson.M)
	if !ok || end["$gte"] != "09:30" {
		t.Errorf("expected end_time $gte 09:30, got %v", match)
	}
}

func TestDateBoundsFilter_SingleBound(t *testing.T) {
	end := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	match := DateBoundsFilter{EndDate: &end}.ToFilter()

	bounds, ok := match["day"].(bson.M)
	if !ok {
		t.Fatalf("expected a day range, got %v", match)
	}
	if _, hasLower := bounds["$gte"]; hasLower {
		t.Error("an absent start date must not produce a lower bound")
	}
	if bounds["$lte"] != end {
		t.Errorf("expected $lte %v, got %v", end, bounds["$lte"])
	}
}

func TestStateFilter_SingleAndMany(t *testing.T) {
	single := StateFilter{States: []string{"created"}}.ToFilter()
	if single["state"] != "created" {
		t.Errorf("single state must match directly, got %v", single)
	}

	many := StateFilter{States: []string{"created", "present"}}.ToFilter()
	clause, ok := many["state"].(bson.M)
	if !ok {
		t.Fatalf("expected an $in clause, got %v", many)
	}
	states, ok := clause["$in"].([]string)
	if !ok || len(states) != 2 {
		t.Errorf("expected 2 states in $in, got %v", clause)
	}
}

func TestRetiredFilter(t *testing.T) {
	if len((RetiredFilter{IncludeRetired: true}).ToFilter()) != 0 {
		t.Error("include_retired must not constrain the query")
	}

	match := RetiredFilter{}.ToFilter()
	clause, ok := match["retired"].(bson.M)
	if !ok || clause["$ne"] != true {
		t.Errorf("expected retired $ne true, got %v", match)
	}
}

func TestTagFilter(t *testing.T) {
	if len((TagFilter{}).ToFilter()) != 0 {
		t.Error("an absent tag must not constrain the query")
	}

	match := TagFilter{TagID: "64f000000000000000000008"}.ToFilter()
	if match["tag_ids"] != "64f000000000000000000008" {
		t.Errorf("expected a tag_ids element match, got %v", match)
	}
}

func TestLocationIncludes_TagsJoinKeepsArray(t *testing.T) {
	specs := LocationIncludes{Authority: true, Tags: true}.Lookups()
	if len(specs) != 2 {
		t.Fatalf("expected 2 lookups, got %d", len(specs))
	}
	if specs[0].From != "authorities" || specs[0].Many {
		t.Errorf("unexpected authority lookup %+v", specs[0])
	}
	if specs[1].From != "tags" || specs[1].LocalField != "tag_ids" || !specs[1].Many {
		t.Errorf("unexpected tags lookup %+v", specs[1])
	}

	// A Many lookup must not be unwound or the row would fan out per tag.
	pipeline := Pipeline(nil, specs, nil)
	unwinds := 0
	for _, stage := range pipeline {
		if stage[0].Key == "$unwind" {
			unwinds++
		}
	}
	if unwinds != 1 {
		t.Errorf("expected only the authority lookup to unwind, got %d unwind stages", unwinds)
	}
}

func TestReservationIncludes_Lookups(t *testing.T) {
	specs := ReservationIncludes{Profile: true, Location: true}.Lookups()
	if len(specs) != 2 {
		t.Fatalf("expected 2 lookups, got %d", len(specs))
	}
	if specs[0].From != "profiles" || specs[0].As != "profile" {
		t.Errorf("unexpected profile lookup %+v", specs[0])
	}
	if specs[1].From != "locations" || specs[1].LocalField != "location_id" {
		t.Errorf("unexpected location lookup %+v", specs[1])
	}

	if (ReservationIncludes{}).Lookups() != nil {
		t.Error("no includes means no lookup stages")
	}
}
