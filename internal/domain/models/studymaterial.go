// internal/domain/models/studymaterial.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Flashcard is one front/back pair of a deck.
type Flashcard struct {
	Front string `bson:"front" json:"front"`
	Back  string `bson:"back" json:"back"`
}

// FlashcardDeck is a named set of flashcards.
type FlashcardDeck struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Title     string             `bson:"title" json:"title"`
	Topic     string             `bson:"topic,omitempty" json:"topic,omitempty"`
	Cards     []Flashcard        `bson:"cards" json:"cards"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// DefenseQuestion is a likely panel question with a suggested answer.
type DefenseQuestion struct {
	Question        string `bson:"question" json:"question"`
	Category        string `bson:"category,omitempty" json:"category,omitempty"`
	SuggestedAnswer string `bson:"suggested_answer,omitempty" json:"suggested_answer,omitempty"`
}

// DefenseQuestionSet groups questions a student prepares for their defense.
type DefenseQuestionSet struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Title       string             `bson:"title" json:"title"`
	ThesisTitle string             `bson:"thesis_title,omitempty" json:"thesis_title,omitempty"`
	Questions   []DefenseQuestion  `bson:"questions" json:"questions"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// StudyGuideSection is a heading with its body text.
type StudyGuideSection struct {
	Heading string `bson:"heading" json:"heading"`
	Content string `bson:"content" json:"content"`
}

// StudyGuide is a sectioned review sheet for a topic.
type StudyGuide struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID   primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	Title     string              `bson:"title" json:"title"`
	Topic     string              `bson:"topic,omitempty" json:"topic,omitempty"`
	Sections  []StudyGuideSection `bson:"sections" json:"sections"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}

// DefenseResponse is a prepared answer to a panel question about one of the
// student's research instruments.
type DefenseResponse struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID        primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	InstrumentName string             `bson:"instrument_name" json:"instrument_name"`
	InstrumentType string             `bson:"instrument_type" json:"instrument_type"`
	QuestionType   string             `bson:"question_type" json:"question_type"`
	QuestionText   string             `bson:"question_text" json:"question_text"`
	Response       string             `bson:"response" json:"response"`
	KeyPoints      []string           `bson:"key_points" json:"key_points"`
	Citations      []string           `bson:"citations" json:"citations"`
	Customized     bool               `bson:"customized" json:"customized"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
