package types

// Classroom DTOs returned by the Classroom listing endpoints and snapshotted
// into Solution.Materials when a solve is enqueued. These are plain structs,
// not persisted rows; ids are Google Classroom ids (strings), not uuids.

type ClassroomCourse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Section       string `json:"section,omitempty"`
	Room          string `json:"room,omitempty"`
	State         string `json:"state,omitempty"`
	AlternateLink string `json:"alternate_link,omitempty"`
}

type ClassroomCourseWork struct {
	ID            string        `json:"id"`
	CourseID      string        `json:"course_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	WorkType      string        `json:"work_type,omitempty"`
	DueDate       string        `json:"due_date,omitempty"`
	AlternateLink string        `json:"alternate_link,omitempty"`
	Materials     []MaterialRef `json:"materials,omitempty"`
}

type ClassroomCourseWorkMaterial struct {
	ID            string        `json:"id"`
	CourseID      string        `json:"course_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	AlternateLink string        `json:"alternate_link,omitempty"`
	Materials     []MaterialRef `json:"materials,omitempty"`
}

// MaterialRef is one classroom material reference. Drive-backed materials
// carry a file id the worker downloads; link/YouTube/form materials carry
// only a URL and are skipped by the text pipeline. InlineText is set for
// uploaded questions files whose text was extracted at enqueue time.
type MaterialRef struct {
	DriveFileID string `json:"drive_file_id,omitempty"`
	Title       string `json:"title,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	Link        string `json:"link,omitempty"`
	InlineText  string `json:"inline_text,omitempty"`
}
