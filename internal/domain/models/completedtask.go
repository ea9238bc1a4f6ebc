// internal/domain/models/completedtask.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompletedTask is a denormalized archival record written once per submitted
// file when an application reaches its terminal completed state. It exists so
// admin reporting never has to join tasks, applications, and submissions.
type CompletedTask struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TaskID        primitive.ObjectID `bson:"task_id" json:"task_id"`
	ApplicationID primitive.ObjectID `bson:"application_id" json:"application_id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`

	TaskTitle string  `bson:"task_title" json:"task_title"`
	Payout    float64 `bson:"payout" json:"payout"`

	// Snapshot of the submitted file
	Filename     string `bson:"filename" json:"filename"`
	OriginalName string `bson:"original_name" json:"original_name"`
	Path         string `bson:"path" json:"-"`
	Size         int64  `bson:"size" json:"size"`
	Mimetype     string `bson:"mimetype" json:"mimetype"`

	CompletedAt time.Time `bson:"completed_at" json:"completed_at"`
}
