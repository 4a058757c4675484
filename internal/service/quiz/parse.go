package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	models "coursedrive/internal/domain/models/quiz"
)

const systemPrompt = `You write multiple-choice quizzes for course material.
Reply with a JSON array only, no prose and no markdown.
The array must contain exactly 5 objects of the form
{"question": string, "options": [4 distinct strings], "answer": string, "explanation": string}
where "answer" is exactly one of "options".`

// buildUserPrompt renders the material a quiz is generated from
func buildUserPrompt(title, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", title)
	if body != "" {
		b.WriteString("\nMaterial:\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nWrite %d questions that test understanding of this material.", models.QuestionCount)
	return b.String()
}

// ParseQuestions decodes a model reply into a validated question set.
// Code fences around the JSON are stripped. Any shape violation is an error.
func ParseQuestions(reply string) ([]models.Question, error) {
	raw := stripCodeFence(reply)
	if raw == "" {
		return nil, errors.New("empty reply")
	}

	var questions []models.Question
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("reply is not a JSON array of questions: %w", err)
	}

	for i := range questions {
		normalizeQuestion(&questions[i])
	}
	if err := ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ValidateQuestions checks count, option count, option uniqueness and that every answer is an option
func ValidateQuestions(questions []models.Question) error {
	if len(questions) != models.QuestionCount {
		return fmt.Errorf("want %d questions, got %d", models.QuestionCount, len(questions))
	}
	for i, q := range questions {
		err := validation.ValidateStruct(&q,
			validation.Field(&q.Question, validation.Required),
			validation.Field(&q.Options,
				validation.Required,
				validation.Length(models.OptionCount, models.OptionCount),
				validation.Each(validation.Required),
				validation.By(distinct),
			),
			validation.Field(&q.Answer, validation.Required, validation.In(toInterfaces(q.Options)...).
				Error("must be one of the options")),
		)
		if err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

func normalizeQuestion(q *models.Question) {
	q.Question = strings.TrimSpace(q.Question)
	q.Answer = strings.TrimSpace(q.Answer)
	q.Explanation = strings.TrimSpace(q.Explanation)
	for i, opt := range q.Options {
		q.Options[i] = strings.TrimSpace(opt)
	}
}

func distinct(value interface{}) error {
	options, _ := value.([]string)
	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		key := strings.ToLower(opt)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// stripCodeFence removes a surrounding ``` or ```json fence and any prose around the array
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if start, end := strings.IndexByte(s, '['), strings.LastIndexByte(s, ']'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
