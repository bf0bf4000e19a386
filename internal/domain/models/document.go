// internal/domain/models/document.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document status values.
const (
	DocumentDraft    = "draft"
	DocumentInReview = "in_review"
	DocumentFinal    = "final"
)

// Document is a thesis chapter or draft owned by a student.
// Version starts at 1 and increases by one on every content change.
type Document struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Title       string             `bson:"title" json:"title"`
	Content     string             `bson:"content" json:"content"`
	Status      string             `bson:"status" json:"status"`
	Version     int                `bson:"version" json:"version"`
	Attachments []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Attachment points at an object uploaded to storage through a presigned URL.
type Attachment struct {
	Key         string    `bson:"key" json:"key"`
	FileName    string    `bson:"file_name" json:"file_name"`
	ContentType string    `bson:"content_type" json:"content_type"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// DocumentVersion is a snapshot of a document taken before it changed.
type DocumentVersion struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID primitive.ObjectID `bson:"document_id" json:"document_id"`
	Version    int                `bson:"version" json:"version"`
	Title      string             `bson:"title" json:"title"`
	Content    string             `bson:"content" json:"content"`
	CreatedBy  primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// IsValidDocumentStatus reports whether s is a known document status.
func IsValidDocumentStatus(s string) bool {
	return s == DocumentDraft || s == DocumentInReview || s == DocumentFinal
}
