package validators

import "go.mongodb.org/mongo-driver/bson"

// Vehicles and Users are owned by the account services. Only the fields
// this system reads are constrained.

var VehicleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "user_id", "vehicle_type", "size", "plate_number"},
		"additionalProperties": true,
		"properties": bson.M{
			"user_id":      bson.M{"bsonType": "long"},
			"vehicle_type": bson.M{"bsonType": "string"},
			"size":         bson.M{"enum": []string{"small", "medium", "large"}},
			"plate_number": bson.M{"bsonType": "string", "minLength": 1},
		},
	},
}

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "email"},
		"additionalProperties": true,
		"properties": bson.M{
			"email": bson.M{"bsonType": "string", "minLength": 3},
			"role":  bson.M{"enum": []string{"user", "admin"}},
		},
	},
}
