package domain

// Card is a single question-answer pair. ID is stable for the card's lifetime.
type Card struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
