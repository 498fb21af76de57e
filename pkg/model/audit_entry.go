package model

import "time"

type AuditEntry struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	ActorID   int64     `json:"actor_id" bson:"actor_id"`
	Action    string    `json:"action" bson:"action"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
