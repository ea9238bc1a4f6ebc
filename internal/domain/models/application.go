// internal/domain/models/application.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplicationStatus is the lifecycle state of a TaskApplication.
// Transitions are checked against an explicit table rather than scattered
// string comparisons, so an illegal move is rejected by construction.
type ApplicationStatus string

const (
	ApplicationPending       ApplicationStatus = "pending"
	ApplicationAccepted      ApplicationStatus = "accepted"
	ApplicationRejected      ApplicationStatus = "rejected"
	ApplicationSubmitted     ApplicationStatus = "submitted"
	ApplicationNeedsRevision ApplicationStatus = "needs_revision"
	ApplicationCompleted     ApplicationStatus = "completed"
	ApplicationCancelled     ApplicationStatus = "cancelled"
)

// applicationTransitions is the full transition table.
// completed, rejected, and cancelled are terminal.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:       {ApplicationAccepted, ApplicationRejected, ApplicationCancelled},
	ApplicationAccepted:      {ApplicationSubmitted, ApplicationCancelled},
	ApplicationSubmitted:     {ApplicationCompleted, ApplicationNeedsRevision},
	ApplicationNeedsRevision: {ApplicationSubmitted},
}

// ValidApplicationStatus reports whether s names a known status.
func ValidApplicationStatus(s ApplicationStatus) bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected,
		ApplicationSubmitted, ApplicationNeedsRevision,
		ApplicationCompleted, ApplicationCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range applicationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s ApplicationStatus) Terminal() bool {
	return len(applicationTransitions[s]) == 0 && ValidApplicationStatus(s)
}

// CanSubmitFiles reports whether deliverables may be uploaded in state s.
func (s ApplicationStatus) CanSubmitFiles() bool {
	return s == ApplicationAccepted || s == ApplicationNeedsRevision
}

// CanWithdraw reports whether the applicant may still withdraw in state s.
func (s ApplicationStatus) CanWithdraw() bool {
	return s == ApplicationPending || s == ApplicationAccepted
}

// Submission is one uploaded deliverable file attached to an application.
type Submission struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Filename     string             `bson:"filename" json:"filename"` // stored name
	OriginalName string             `bson:"original_name" json:"original_name"`
	Path         string             `bson:"path" json:"-"`
	Size         int64              `bson:"size" json:"size"`
	Mimetype     string             `bson:"mimetype" json:"mimetype"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploaded_at"`
}

// AdminReview records an admin's verdict on a submitted application.
type AdminReview struct {
	ReviewerID primitive.ObjectID `bson:"reviewer_id" json:"reviewer_id"`
	Outcome    string             `bson:"outcome" json:"outcome"` // accepted | needs_revision
	Comments   string             `bson:"comments,omitempty" json:"comments,omitempty"`
	ReviewedAt time.Time          `bson:"reviewed_at" json:"reviewed_at"`
}

// TaskApplication joins a user to a task, with its own lifecycle.
// Unique on (user_id, task_id): a user applies to a task at most once.
type TaskApplication struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	TaskID primitive.ObjectID `bson:"task_id" json:"task_id"`

	Status  ApplicationStatus `bson:"status" json:"status"`
	Message string            `bson:"message,omitempty" json:"message,omitempty"`

	Submissions []Submission `bson:"submissions,omitempty" json:"submissions,omitempty"`
	Progress    int          `bson:"progress" json:"progress"` // [0,100]

	AdminReview *AdminReview `bson:"admin_review,omitempty" json:"admin_review,omitempty"`
	Feedback    string       `bson:"feedback,omitempty" json:"feedback,omitempty"`

	AppliedAt   time.Time  `bson:"applied_at" json:"applied_at"`
	DeliveredAt *time.Time `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// SubmissionCount is always derived from the embedded list.
func (a TaskApplication) SubmissionCount() int { return len(a.Submissions) }

// DaysSinceApplication returns whole days since the application was created.
// Derived, never stored.
func (a TaskApplication) DaysSinceApplication(now time.Time) int {
	d := int(now.Sub(a.AppliedAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
