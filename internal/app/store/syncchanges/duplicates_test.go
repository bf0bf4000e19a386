package syncstore

import (
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestOnlyDuplicates(t *testing.T) {
	writeErr := func(code int, msg string) mongo.BulkWriteError {
		return mongo.BulkWriteError{WriteError: mongo.WriteError{Code: code, Message: msg}}
	}
	tests := []struct {
		name string
		bwe  mongo.BulkWriteException
		want bool
	}{
		{"duplicates", mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{writeErr(11000, "E11000 duplicate key"), writeErr(11000, "E11000 duplicate key")}}, true},
		{"validation failure", mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{writeErr(11000, "E11000 duplicate key"), writeErr(121, "Document failed validation")}}, false},
		{"write concern", mongo.BulkWriteException{WriteConcernError: &mongo.WriteConcernError{Code: 64}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := onlyDuplicates(tt.bwe); got != tt.want {
				t.Errorf("onlyDuplicates = %v, want %v", got, tt.want)
			}
		})
	}
}
