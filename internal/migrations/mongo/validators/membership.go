package validators

import "go.mongodb.org/mongo-driver/bson"

var RoleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"scope_kind",
			"scope_id",
			"permissions",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"scope_kind": bson.M{
				"bsonType": "string",
				"enum": []string{
					"institution",
					"authority",
					"location",
				},
			},

			"scope_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"permissions": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},
		},
	},
}

var MembershipValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"profile_id",
			"role_id",
			"scope_kind",
			"scope_id",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"profile_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"role_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"scope_kind": bson.M{
				"bsonType": "string",
				"enum": []string{
					"institution",
					"authority",
					"location",
				},
			},

			"scope_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},
		},
	},
}
