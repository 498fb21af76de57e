package validators

import "go.mongodb.org/mongo-driver/bson"

var nullableLong = bson.M{"bsonType": []string{"long", "null"}}

var SlotRequestValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"user_id",
			"vehicle_id",
			"status",
			"requested_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"user_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"vehicle_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"status": bson.M{
				"enum": []string{"pending", "approved", "rejected"},
			},

			"slot_id": nullableLong,

			"slot_number": bson.M{
				"bsonType": []string{"string", "null"},
			},

			"requested_at": bson.M{
				"bsonType": "date",
			},

			"approved_at": bson.M{
				"bsonType": "date",
			},

			"rejected_at": bson.M{
				"bsonType": "date",
			},

			"released_at": bson.M{
				"bsonType": "date",
			},

			"rejection_reason": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 500,
			},

			"processed_by": bson.M{
				"bsonType": "long",
			},
		},
	},
}
