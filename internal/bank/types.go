package bank

const QuestionTypeDescriptive = "DESCRIPTIVE"

const (
	MinModule = 1
	MaxModule = 5
)

// Subpart is one labelled sub-question such as "b)" or "iii)".
type Subpart struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// ParsedQuestion is the structured form of one question block.
// Subparts is nil when no sub-question layout was detected.
type ParsedQuestion struct {
	Text         string    `json:"text"`
	Marks        *int      `json:"marks"`
	COTags       []string  `json:"co_tags"`
	RBTLevel     *string   `json:"rbt_level"`
	Subparts     []Subpart `json:"subparts"`
	Module       *int      `json:"module"`
	QuestionType string    `json:"q_type"`
}

// HasTags reports whether any of marks, course outcomes or level were found.
func (q ParsedQuestion) HasTags() bool {
	return q.Marks != nil || len(q.COTags) > 0 || q.RBTLevel != nil
}

// Confidence is the score stored alongside a freshly ingested question.
func (q ParsedQuestion) Confidence() float64 {
	if q.HasTags() {
		return 0.6
	}
	return 0.3
}

func ValidModule(n int) bool {
	return n >= MinModule && n <= MaxModule
}
