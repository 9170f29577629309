package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/glowsenior/HIPAA-Contract-Site/pkg/apperr"
)

// Status is the contract lifecycle state.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ProjectType constants
const (
	ProjectMedicalWebsite = "medical-website"
	ProjectEHRSystem      = "ehr-system"
	ProjectTelemedicine   = "telemedicine"
	ProjectMedicalApp     = "medical-app"
	ProjectOther          = "other"
)

// statusTransitions is the allowed lifecycle graph. Cancellation is
// reachable from every non-terminal state; completed and cancelled are
// terminal.
var statusTransitions = map[Status][]Status{
	StatusDraft:      {StatusPending, StatusCancelled},
	StatusPending:    {StatusApproved, StatusCancelled},
	StatusApproved:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// Valid reports whether s is one of the six lifecycle states.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Re-asserting the current status is treated as a no-op and allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidProjectType reports whether t is a known project type.
func ValidProjectType(t string) bool {
	switch t {
	case ProjectMedicalWebsite, ProjectEHRSystem, ProjectTelemedicine, ProjectMedicalApp, ProjectOther:
		return true
	}
	return false
}

// Milestone is one timeline entry.
type Milestone struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"dueDate"`
	Completed   bool      `json:"completed"`
}

// Timeline holds the engagement dates and ordered milestones.
type Timeline struct {
	StartDate  time.Time   `json:"startDate"`
	EndDate    time.Time   `json:"endDate"`
	Milestones []Milestone `json:"milestones,omitempty"`
}

// Requirements holds the scoped feature/technology/integration/compliance
// sets.
type Requirements struct {
	Features     []string `json:"features,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Integrations []string `json:"integrations,omitempty"`
	Compliance   []string `json:"compliance,omitempty"`
}

// Terms holds the commercial terms.
type Terms struct {
	PaymentSchedule   string   `json:"paymentSchedule,omitempty"`
	Deliverables      []string `json:"deliverables,omitempty"`
	Warranties        string   `json:"warranties,omitempty"`
	TerminationClause string   `json:"terminationClause,omitempty"`
}

// Message is one communication entry on a contract.
type Message struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Contract represents one engagement between a client and a contractor.
// Nested aggregates are stored as JSON columns; document references are
// IDs into the documents table.
type Contract struct {
	ID            string                      `gorm:"primaryKey" json:"id"`
	Title         string                      `json:"title"`
	Description   string                      `json:"description"`
	ClientID      string                      `gorm:"index" json:"clientId"`
	ContractorID  string                      `gorm:"index" json:"contractorId"`
	Client        *User                       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Contractor    *User                       `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
	ProjectType   string                      `json:"projectType"`
	Budget        float64                     `json:"budget"`
	Currency      string                      `json:"currency"`
	Status        Status                      `gorm:"index" json:"status"`
	Timeline      Timeline                    `gorm:"serializer:json" json:"timeline"`
	Requirements  Requirements                `gorm:"serializer:json" json:"requirements"`
	Terms         Terms                       `gorm:"serializer:json" json:"terms"`
	Communication []Message                   `gorm:"serializer:json" json:"communication"`
	DocumentIDs   datatypes.JSONSlice[string] `gorm:"column:document_ids" json:"documentIds"`
	DLFrontID     *string                     `json:"dlFront,omitempty"`
	DLBackID      *string                     `json:"dlBack,omitempty"`

	// Resolved on fetch, not persisted as columns.
	Documents []Document `gorm:"-" json:"documents,omitempty"`
	DLFront   *Document  `gorm:"-" json:"dlFrontDocument,omitempty"`
	DLBack    *Document  `gorm:"-" json:"dlBackDocument,omitempty"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// IsParticipant reports whether userID is the contract's client or
// contractor. Every read/update/message right hinges on this.
func (c *Contract) IsParticipant(userID string) bool {
	return c.ClientID == userID || c.ContractorID == userID
}

// Validate checks the invariants a contract must hold before it is
// persisted. It returns every violated field, not just the first.
func (c *Contract) Validate() error {
	var fields []apperr.FieldError

	if c.Title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "Title is required"})
	}
	if c.Description == "" {
		fields = append(fields, apperr.FieldError{Field: "description", Message: "Description is required"})
	}
	if c.ContractorID == "" {
		fields = append(fields, apperr.FieldError{Field: "contractor", Message: "Valid contractor ID is required"})
	}
	if !ValidProjectType(c.ProjectType) {
		fields = append(fields, apperr.FieldError{Field: "projectType", Message: "Invalid project type"})
	}
	if c.Budget < 0 {
		fields = append(fields, apperr.FieldError{Field: "budget", Message: "Budget must be a non-negative number"})
	}
	if !c.Status.Valid() {
		fields = append(fields, apperr.FieldError{Field: "status", Message: "Invalid status"})
	}
	if c.Timeline.StartDate.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "timeline.startDate", Message: "Valid start date is required"})
	}
	if c.Timeline.EndDate.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "timeline.endDate", Message: "Valid end date is required"})
	}

	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}
