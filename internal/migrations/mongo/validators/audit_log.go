package validators

import "go.mongodb.org/mongo-driver/bson"

var AuditLogValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "actor_id", "action", "created_at"},
		"additionalProperties": false,
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"actor_id": bson.M{
				"bsonType": "long",
			},
			"action": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
