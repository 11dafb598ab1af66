package query

import (
	"blokmap/pkg/pagination"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Pipeline assembles the aggregation every listing repository runs: match the
// composed filter, attach the requested lookups, sort, and cut the fetch at
// the pagination hard limit. Pagination itself happens in memory afterwards
// so the total/truncated contract stays uniform across backends.
func Pipeline(match bson.M, lookups []LookupSpec, sort bson.D) mongo.Pipeline {
	pipeline := mongo.Pipeline{}

	if len(match) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	for _, spec := range lookups {
		pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: bson.M{
			"from":         spec.From,
			"localField":   spec.LocalField,
			"foreignField": spec.ForeignField,
			"as":           spec.As,
		}}})
		if spec.Many {
			continue
		}
		pipeline = append(pipeline, bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$" + spec.As,
			"preserveNullAndEmptyArrays": true,
		}}})
	}

	if len(sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})
	}

	pipeline = append(pipeline, bson.D{{Key: "$limit", Value: pagination.QueryHardLimit}})

	return pipeline
}
