package model

import "time"

type Institution struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Slug      string    `json:"slug" bson:"slug" validate:"required,min=2,max=100,lowercase"`
	Category  string    `json:"category" bson:"category" validate:"required,oneof=education organisation government"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type Authority struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	InstitutionID string    `json:"institution_id" bson:"institution_id" validate:"required,mongodb"`
	Name          string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description   string    `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
