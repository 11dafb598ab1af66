package validators

import "go.mongodb.org/mongo-driver/bson"

var LocationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"authority_id",
			"name",
			"city",
			"address",
			"seat_count",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"authority_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"city": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 50,
			},

			"address": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"seat_count": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  1000,
			},

			"max_reservation_blocks": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"description": translationSchema,
			"excerpt":     translationSchema,

			"tag_ids": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType":  "string",
					"minLength": 24,
					"maxLength": 24,
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
