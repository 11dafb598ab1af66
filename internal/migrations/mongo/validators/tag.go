package validators

import "go.mongodb.org/mongo-driver/bson"

// translationSchema is the shape of every embedded translation value.
var translationSchema = bson.M{
	"bsonType":             "object",
	"additionalProperties": false,
	"properties": bson.M{
		"nl": bson.M{"bsonType": "string", "maxLength": 500},
		"en": bson.M{"bsonType": "string", "maxLength": 500},
		"fr": bson.M{"bsonType": "string", "maxLength": 500},
		"de": bson.M{"bsonType": "string", "maxLength": 500},
	},
}

var TagValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name"},

		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"name": translationSchema,

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
