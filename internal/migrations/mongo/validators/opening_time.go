package validators

import "go.mongodb.org/mongo-driver/bson"

var OpeningTimeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"location_id",
			"day",
			"start_time",
			"end_time",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"location_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"day": bson.M{
				"bsonType": "date",
			},

			// Zero-padded "HH:MM" wall-clock values.
			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"end_time": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"seat_count": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  1000,
			},

			"reservable_from": bson.M{
				"bsonType": "date",
			},

			"reservable_until": bson.M{
				"bsonType": "date",
			},

			"retired": bson.M{
				"bsonType": "bool",
			},

			"created_by": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
