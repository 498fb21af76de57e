package model

type Vehicle struct {
	ID          int64  `json:"id" bson:"_id"`
	UserID      int64  `json:"user_id" bson:"user_id"`
	VehicleType string `json:"vehicle_type" bson:"vehicle_type"`
	Size        string `json:"size" bson:"size"`
	PlateNumber string `json:"plate_number" bson:"plate_number"`
}

type UserContact struct {
	ID    int64  `json:"id" bson:"_id"`
	Email string `json:"email" bson:"email"`
	Role  string `json:"role" bson:"role"`
}
