package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SolutionStatusProcessing = "processing"
	SolutionStatusCompleted  = "completed"
	SolutionStatusFailed     = "failed"
)

// Solution records one assignment-solving attempt and its result. The status
// moves from processing to exactly one of completed or failed; a row is never
// re-run after it reaches a terminal status.
type Solution struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID     string         `gorm:"column:course_id;index" json:"course_id"`
	CourseWorkID string         `gorm:"column:course_work_id;index" json:"course_work_id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Status       string         `gorm:"column:status;not null;index" json:"status"`
	SolutionText string         `gorm:"column:solution_text" json:"solution_text"`
	PDFData      []byte         `gorm:"column:pdf_data;type:bytea" json:"-"`
	PDFKey       string         `gorm:"column:pdf_key" json:"pdf_key,omitempty"`
	PDFURL       string         `gorm:"column:pdf_url" json:"pdf_url,omitempty"`
	Error        string         `gorm:"column:error" json:"error,omitempty"`
	Materials    datatypes.JSON `gorm:"type:jsonb;column:materials" json:"materials"`
	Attempts     int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LockedAt     *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt  *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	StartedAt    *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Solution) TableName() string { return "solution" }

// HasPDF is what list endpoints expose instead of the payload itself.
func (s *Solution) HasPDF() bool {
	return s != nil && len(s.PDFData) > 0
}
