package question

import (
	"errors"
	"time"

	"questgen/internal/bank"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrBankNotFound       = errors.New("question bank not found")
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrUnreadableDocument = errors.New("unreadable document")
)

const (
	StatusDraft    = "DRAFT"
	StatusApproved = "APPROVED"
)

// Record is a persisted question as seen by paper generation.
type Record struct {
	ID              int64          `json:"id"`
	SchemeID        int64          `json:"scheme_id"`
	SubjectID       int64          `json:"subject_id"`
	QuestionType    string         `json:"q_type"`
	Text            string         `json:"text"`
	Marks           *int           `json:"marks"`
	COTags          []string       `json:"co_tags"`
	RBTLevel        *string        `json:"rbt_level"`
	Subparts        []bank.Subpart `json:"subparts"`
	Answer          *string        `json:"answer,omitempty"`
	Module          *int           `json:"module"`
	Status          string         `json:"status"`
	ParseConfidence float64        `json:"parse_confidence"`
	SourceFile      string         `json:"source_file,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ModuleKey groups records without a module under 0.
func (r Record) ModuleKey() int {
	if r.Module == nil {
		return 0
	}
	return *r.Module
}

// Bank is one uploaded question-bank document.
type Bank struct {
	ID            int64     `json:"id"`
	SchemeID      int64     `json:"scheme_id"`
	SubjectID     int64     `json:"subject_id"`
	Module        int       `json:"module"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"-"`
	SourceTag     string    `json:"source_tag"`
	QuestionCount int       `json:"question_count"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

func ValidStatus(s string) bool {
	return s == StatusDraft || s == StatusApproved
}

type SaveBankInput struct {
	SchemeID  int64
	SubjectID int64
	Module    int
	FileName  string
	FilePath  string
	SourceTag string
	Questions []bank.ParsedQuestion
}

// Filter narrows ListQuestions. Zero values mean "any". Module takes
// precedence over Modules.
type Filter struct {
	SchemeID  int64
	SubjectID int64
	Status    string
	RBTLevel  string
	CO        string
	Module    int
	Modules   []int
}

// UpdateInput carries a partial edit; nil fields are left unchanged.
type UpdateInput struct {
	Text     *string
	Marks    *int
	COTags   *[]string
	RBTLevel *string
	Subparts *[]bank.Subpart
	Answer   *string
	Module   *int
	Status   *string
}
