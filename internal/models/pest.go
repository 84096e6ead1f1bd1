package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Pest struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CropID         primitive.ObjectID `json:"crop_id" bson:"crop_id"`
	Name           string             `json:"name" bson:"name" validate:"required"`
	NameHi         string             `json:"name_hi,omitempty" bson:"name_hi,omitempty"`
	ScientificName string             `json:"scientific_name,omitempty" bson:"scientific_name,omitempty"`
	Images         []string           `json:"images,omitempty" bson:"images,omitempty"`
	Symptoms       []string           `json:"symptoms,omitempty" bson:"symptoms,omitempty"`
	SymptomsHi     []string           `json:"symptoms_hi,omitempty" bson:"symptoms_hi,omitempty"`
	Lifecycle      string             `json:"lifecycle,omitempty" bson:"lifecycle,omitempty"`
	LifecycleHi    string             `json:"lifecycle_hi,omitempty" bson:"lifecycle_hi,omitempty"`
	Damage         string             `json:"damage,omitempty" bson:"damage,omitempty"`
	DamageHi       string             `json:"damage_hi,omitempty" bson:"damage_hi,omitempty"`
	Season         string             `json:"season,omitempty" bson:"season,omitempty"`
	Tags           []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// Advisory holds the IPM recommendations for a single pest, one document per pest.
type Advisory struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PestID       primitive.ObjectID `json:"pest_id" bson:"pest_id"`
	Prevention   []string           `json:"prevention,omitempty" bson:"prevention,omitempty"`
	PreventionHi []string           `json:"prevention_hi,omitempty" bson:"prevention_hi,omitempty"`
	Mechanical   []string           `json:"mechanical,omitempty" bson:"mechanical,omitempty"`
	MechanicalHi []string           `json:"mechanical_hi,omitempty" bson:"mechanical_hi,omitempty"`
	Biological   []string           `json:"biological,omitempty" bson:"biological,omitempty"`
	BiologicalHi []string           `json:"biological_hi,omitempty" bson:"biological_hi,omitempty"`
	Chemical     []string           `json:"chemical,omitempty" bson:"chemical,omitempty"`
	ChemicalHi   []string           `json:"chemical_hi,omitempty" bson:"chemical_hi,omitempty"`
	Dosage       string             `json:"dosage,omitempty" bson:"dosage,omitempty"`
	DosageHi     string             `json:"dosage_hi,omitempty" bson:"dosage_hi,omitempty"`
	Safety       string             `json:"safety,omitempty" bson:"safety,omitempty"`
	SafetyHi     string             `json:"safety_hi,omitempty" bson:"safety_hi,omitempty"`
	Notes        string             `json:"notes,omitempty" bson:"notes,omitempty"`
	NotesHi      string             `json:"notes_hi,omitempty" bson:"notes_hi,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}
