package validators

import "go.mongodb.org/mongo-driver/bson"

// Profiles are written by the external auth layer; the validator only pins
// the shape the display joins rely on.
var ProfileValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"username",
			"email",
			"state",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"username": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 50,
			},

			"email": bson.M{
				"bsonType": "string",
			},

			"is_admin": bson.M{
				"bsonType": "bool",
			},

			"state": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending_email_verification",
					"active",
					"disabled",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
