package validators

import "go.mongodb.org/mongo-driver/bson"

var ParkingSlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"slot_number",
			"size",
			"vehicle_type",
			"location",
			"status",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"slot_number": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 20,
			},

			"size": bson.M{
				"enum": []string{"small", "medium", "large"},
			},

			"vehicle_type": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 30,
			},

			"location": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"status": bson.M{
				"enum": []string{"available", "unavailable"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
