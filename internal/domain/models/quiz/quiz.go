package quiz

import "time"

// QuestionCount is the number of questions every generated quiz must contain
const QuestionCount = 5

// OptionCount is the number of answer options per question
const OptionCount = 4

// Question is a single multiple-choice question
type Question struct {
	Question    string   `json:"question" bson:"question"`
	Options     []string `json:"options" bson:"options"`
	Answer      string   `json:"answer" bson:"answer"` // One of Options
	Explanation string   `json:"explanation,omitempty" bson:"explanation,omitempty"`
}

// Quiz is the persisted quiz for one content node
type Quiz struct {
	ID        string     `json:"_id"`
	ContentID string     `json:"contentId"`
	CreatedBy string     `json:"createdBy"`
	Questions []Question `json:"questions"`
	Model     string     `json:"model"`
	CreatedAt time.Time  `json:"createdAt"`
}
