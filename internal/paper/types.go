package paper

const (
	RowTypeQuestion = "question"
	RowTypeOR       = "or"

	DefaultTitle = "INTERNAL ASSESSMENT TEST - 1"
)

// QuestionLayout is one requested question of the paper. Parts defaults to
// "a","b" when left unset; Marks maps a part label to its target marks.
type QuestionLayout struct {
	QNo       int            `json:"qno" yaml:"qno"`
	Parts     []string       `json:"parts" yaml:"parts"`
	Marks     map[string]int `json:"marks" yaml:"marks"`
	PreferRBT string         `json:"rbt,omitempty" yaml:"rbt,omitempty"`
	PreferCO  string         `json:"co,omitempty" yaml:"co,omitempty"`
}

func (q QuestionLayout) PartLabels() []string {
	if q.Parts == nil {
		return []string{"a", "b"}
	}
	return q.Parts
}

func (q QuestionLayout) targetMarks(label string) *int {
	v, ok := q.Marks[label]
	if !ok {
		return nil
	}
	return &v
}

// GenerationConfig describes the paper to assemble. Title and Header are
// carried through to the output untouched.
type GenerationConfig struct {
	Title             string           `json:"title" yaml:"title"`
	Header            map[string]any   `json:"header" yaml:"header"`
	ModulePercentages map[int]int      `json:"module_percentages" yaml:"module_percentages"`
	Questions         []QuestionLayout `json:"questions" yaml:"questions"`
	ORAfter           []int            `json:"or_after" yaml:"or_after"`
}

// TotalParts is the number of parts across all requested questions.
func (c GenerationConfig) TotalParts() int {
	n := 0
	for _, q := range c.Questions {
		n += len(q.PartLabels())
	}
	return n
}

// Part is one filled (or placeholder) part of a question row.
type Part struct {
	Label     string   `json:"label"`
	Text      string   `json:"text"`
	Marks     *int     `json:"marks"`
	CO        []string `json:"co"`
	RBT       *string  `json:"rbt"`
	SourceQID *int64   `json:"source_qid,omitempty"`
}

// Row is either a question row or an OR separator.
type Row struct {
	Type  string `json:"type"`
	QNo   int    `json:"qno,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

func (r Row) IsQuestion() bool {
	return r.Type == RowTypeQuestion
}

type Paper struct {
	Title  string         `json:"title"`
	Header map[string]any `json:"header"`
	Rows   []Row          `json:"rows"`
}
