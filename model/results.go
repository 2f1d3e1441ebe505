package model

import (
	"strconv"
	"strings"
)

// MinRating and MaxRating bound the histogram buckets of a rating question.
// Parsed values outside the range still count towards the average.
const (
	MinRating = 1
	MaxRating = 10
)

type SurveyResults struct {
	TotalResponses int               `json:"total_responses"`
	Questions      []QuestionResults `json:"questions"`
}

// QuestionResults is a per-type summary of one question's answers.
// Exactly one variant is populated: Choices for multiple_choice/yes_no,
// AverageRating+Distribution for rating, Texts for everything else.
type QuestionResults struct {
	ID       int    `json:"id"`
	Type     string `json:"type"`
	Question string `json:"question"`

	Choices       []OptionCount `json:"options,omitempty"`
	AverageRating *float64      `json:"average_rating,omitempty"`
	Distribution  []RatingCount `json:"distribution,omitempty"`
	Texts         []string      `json:"answers,omitempty"`
}

type OptionCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

type RatingCount struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// AggregateQuestion tallies raw answer texts according to the question type.
// Texts must come from completed responses only, in storage order.
func AggregateQuestion(q Question, texts []string) QuestionResults {
	res := QuestionResults{
		ID:       q.ID,
		Type:     q.Type,
		Question: q.Question,
	}

	switch q.Type {
	case TypeMultipleChoice, TypeYesNo:
		res.Choices = countChoices(texts)
	case TypeRating:
		res.AverageRating, res.Distribution = tallyRatings(texts)
	default:
		res.Texts = texts
	}
	return res
}

// countChoices groups identical answer texts, keeping first-seen order.
// Options nobody picked never appear.
func countChoices(texts []string) (counts []OptionCount) {
	index := make(map[string]int)
	for _, text := range texts {
		if i, seen := index[text]; seen {
			counts[i].Count++
			continue
		}
		index[text] = len(counts)
		counts = append(counts, OptionCount{Option: text, Count: 1})
	}
	return
}

// tallyRatings parses answers as integers, skipping anything non-numeric.
// The distribution always has one bucket per rating 1..10; the average is
// nil when no answer parsed.
func tallyRatings(texts []string) (average *float64, distribution []RatingCount) {
	distribution = make([]RatingCount, 0, MaxRating-MinRating+1)
	for rating := MinRating; rating <= MaxRating; rating++ {
		distribution = append(distribution, RatingCount{Rating: rating})
	}

	sum, n := 0, 0
	for _, text := range texts {
		rating, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			continue
		}
		sum += rating
		n++
		if rating >= MinRating && rating <= MaxRating {
			distribution[rating-MinRating].Count++
		}
	}

	if n > 0 {
		avg := float64(sum) / float64(n)
		average = &avg
	}
	return
}
