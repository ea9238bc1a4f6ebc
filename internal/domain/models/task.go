// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task statuses.
const (
	TaskOpen       = "open"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskCancelled  = "cancelled"
)

// TaskCategories is the canonical list of task categories.
// It drives both the public /tasks/categories endpoint and the
// JSON-Schema validator on the tasks collection.
var TaskCategories = []string{
	"web_development",
	"mobile_development",
	"design",
	"writing",
	"data_entry",
	"translation",
	"marketing",
	"other",
}

// TaskDifficulties is the canonical list of difficulty levels.
var TaskDifficulties = []string{
	"beginner",
	"intermediate",
	"advanced",
}

// Payout bounds, inclusive.
const (
	MinPayout = 0
	MaxPayout = 10000
)

// Task is a marketplace listing posted by a client.
type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"-"` // lowercase, diacritics-stripped
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Difficulty  string             `bson:"difficulty" json:"difficulty"`
	Payout      float64            `bson:"payout" json:"payout"`
	Duration    int                `bson:"duration" json:"duration"` // days
	Status      string             `bson:"status" json:"status"`

	ClientID   primitive.ObjectID   `bson:"client_id" json:"client_id"`
	Applicants []primitive.ObjectID `bson:"applicants,omitempty" json:"applicants,omitempty"`
	AssignedTo *primitive.ObjectID  `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`

	Deadline  time.Time `bson:"deadline" json:"deadline"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ValidTaskCategory reports whether c is a known category.
func ValidTaskCategory(c string) bool {
	for _, v := range TaskCategories {
		if v == c {
			return true
		}
	}
	return false
}

// ValidTaskDifficulty reports whether d is a known difficulty.
func ValidTaskDifficulty(d string) bool {
	for _, v := range TaskDifficulties {
		if v == d {
			return true
		}
	}
	return false
}

// DaysUntilDeadline returns whole days remaining before the deadline.
// Negative values mean the deadline has passed. Derived, never stored.
func (t Task) DaysUntilDeadline(now time.Time) int {
	return int(t.Deadline.Sub(now).Hours() / 24)
}
