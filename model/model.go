package model

import "time"

const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusClosed = "closed"
)

const (
	TypeMultipleChoice = "multiple_choice"
	TypeText           = "text"
	TypeRating         = "rating"
	TypeYesNo          = "yes_no"
)

func ValidStatus(s string) bool {
	return s == StatusDraft || s == StatusActive || s == StatusClosed
}

func ValidQuestionType(t string) bool {
	return t == TypeMultipleChoice || t == TypeText || t == TypeRating || t == TypeYesNo
}

type Survey struct {
	ID            int        `json:"id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status,omitempty"`
	PublicLink    *string    `json:"public_link,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	ResponseCount *int       `json:"response_count,omitempty"`
	Questions     []Question `json:"questions"`
}

type Question struct {
	ID          int              `json:"id,omitempty"`
	Type        string           `json:"type"`
	Question    string           `json:"question"`
	Description string           `json:"description,omitempty"`
	Required    bool             `json:"required"`
	Order       int              `json:"order"`
	Options     []QuestionOption `json:"options,omitempty"`
}

type QuestionOption struct {
	ID    int    `json:"id,omitempty"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type Response struct {
	ID              int       `json:"id,omitempty"`
	SurveyID        int       `json:"survey"`
	RespondentEmail *string   `json:"respondent_email,omitempty"`
	RespondentName  *string   `json:"respondent_name,omitempty"`
	Department      *string   `json:"department,omitempty"`
	Completed       bool      `json:"completed"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	Answers         []Answer  `json:"answers"`
}

type Answer struct {
	ID         int    `json:"id,omitempty"`
	QuestionID int    `json:"question"`
	AnswerText string `json:"answer_text"`
}
