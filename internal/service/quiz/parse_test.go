package quiz

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "coursedrive/internal/domain/models/quiz"
)

func validQuestions() []models.Question {
	questions := make([]models.Question, models.QuestionCount)
	for i := range questions {
		questions[i] = models.Question{
			Question:    fmt.Sprintf("Question %d?", i+1),
			Options:     []string{"alpha", "beta", "gamma", "delta"},
			Answer:      "gamma",
			Explanation: "because",
		}
	}
	return questions
}

func reply(t *testing.T, questions []models.Question) string {
	t.Helper()
	raw, err := json.Marshal(questions)
	require.NoError(t, err)
	return string(raw)
}

func TestParseQuestions(t *testing.T) {
	plain := reply(t, validQuestions())

	tests := []struct {
		name  string
		reply string
	}{
		{name: "bare array", reply: plain},
		{name: "json fence", reply: "```json\n" + plain + "\n```"},
		{name: "plain fence", reply: "```\n" + plain + "\n```"},
		{name: "prose around the array", reply: "Here is your quiz:\n" + plain + "\nGood luck!"},
		{name: "prose after the array", reply: plain + "\nHope this helps!"},
		{name: "fence then prose", reply: "```json\n" + plain + "\n```\nLet me know if you want more."},
		{name: "surrounding whitespace", reply: "\n\n  " + plain + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions, err := ParseQuestions(tt.reply)
			require.NoError(t, err)
			assert.Len(t, questions, models.QuestionCount)
			assert.Equal(t, "gamma", questions[0].Answer)
		})
	}
}

func TestParseQuestions_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]models.Question) []models.Question
		raw    string
	}{
		{name: "empty reply", raw: "   "},
		{name: "not json", raw: "I cannot help with that."},
		{name: "object instead of array", raw: `{"question":"q"}`},
		{name: "too few questions", mutate: func(q []models.Question) []models.Question { return q[:4] }},
		{name: "too many questions", mutate: func(q []models.Question) []models.Question { return append(q, q[0]) }},
		{name: "blank question", mutate: func(q []models.Question) []models.Question { q[2].Question = "  "; return q }},
		{name: "three options", mutate: func(q []models.Question) []models.Question { q[1].Options = q[1].Options[:3]; return q }},
		{name: "duplicate options", mutate: func(q []models.Question) []models.Question {
			q[0].Options = []string{"a", "b", "B", "c"}
			q[0].Answer = "a"
			return q
		}},
		{name: "empty option", mutate: func(q []models.Question) []models.Question { q[3].Options[0] = ""; return q }},
		{name: "answer not an option", mutate: func(q []models.Question) []models.Question { q[4].Answer = "omega"; return q }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.raw
			if tt.mutate != nil {
				raw = reply(t, tt.mutate(validQuestions()))
			}
			_, err := ParseQuestions(raw)
			assert.Error(t, err)
		})
	}
}

func TestParseQuestions_TrimsFields(t *testing.T) {
	questions := validQuestions()
	questions[0].Options = []string{" alpha ", "beta", "gamma", "delta"}
	questions[0].Answer = "alpha  "

	parsed, err := ParseQuestions(reply(t, questions))
	require.NoError(t, err)
	assert.Equal(t, "alpha", parsed[0].Options[0])
	assert.Equal(t, "alpha", parsed[0].Answer)
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt("Fractions", "A fraction has a numerator.")
	assert.True(t, strings.HasPrefix(prompt, "Title: Fractions\n"))
	assert.Contains(t, prompt, "A fraction has a numerator.")
	assert.Contains(t, prompt, "Write 5 questions")

	assert.NotContains(t, buildUserPrompt("Empty", ""), "Material:")
}

func TestPayloadText(t *testing.T) {
	doc := `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Fractions"}]},
		{"type":"paragraph","content":[{"type":"text","text":"A fraction has"},{"type":"text","text":"a numerator."}]},
		{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"Half"}]}]}]}
	]}`

	assert.Equal(t, "Fractions\nA fraction has a numerator.\nHalf", PayloadText(json.RawMessage(doc)))

	generic := `{"summary":"Second","intro":"First","count":3,"sections":["Third"]}`
	assert.Equal(t, "First Third Second", PayloadText(json.RawMessage(generic)))

	markup := `{"body":"<h2>Cells</h2><p>Plants &amp; animals<script>alert(1)</script></p>"}`
	assert.Equal(t, "Cells Plants & animals", PayloadText(json.RawMessage(markup)))

	assert.Equal(t, "x < y", PayloadText(json.RawMessage(`{"text":"x < y"}`)))

	assert.Empty(t, PayloadText(nil))
	assert.Empty(t, PayloadText(json.RawMessage(`not json`)))

	long := `{"text":"` + strings.Repeat("x", 30000) + `"}`
	assert.Len(t, PayloadText(json.RawMessage(long)), 20000)
}
