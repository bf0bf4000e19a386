package metricsstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// Counts is the dashboard summary of one user.
type Counts struct {
	Documents           int64 `json:"documents"`
	FlashcardDecks      int64 `json:"flashcard_decks"`
	StudyGuides         int64 `json:"study_guides"`
	DefenseSets         int64 `json:"defense_sets"`
	UnreadNotifications int64 `json:"unread_notifications"`
	UnreadMessages      int64 `json:"unread_messages"`
	Relationships       int64 `json:"relationships"`

	// Failed names the counters that could not be read; they are reported as 0.
	Failed []string `json:"failed,omitempty"`
}

type counter struct {
	name       string
	collection string
	filter     bson.M
	dst        *int64
}

// FetchUserCounts runs every counter concurrently. It is tolerant: a failing
// counter reads 0 and is listed in Failed.
func FetchUserCounts(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) Counts {
	var out Counts
	var criticMentor, criticStudent int64
	var advisorMentor, advisorStudent int64
	now := time.Now().UTC()

	counters := []counter{
		{"documents", "documents", bson.M{"owner_id": userID}, &out.Documents},
		{"flashcard_decks", "flashcard_decks", bson.M{"owner_id": userID}, &out.FlashcardDecks},
		{"study_guides", "study_guides", bson.M{"owner_id": userID}, &out.StudyGuides},
		{"defense_sets", "defense_question_sets", bson.M{"owner_id": userID}, &out.DefenseSets},
		{"unread_notifications", "notifications", bson.M{"user_id": userID, "read": false, "expires_at": bson.M{"$gt": now}}, &out.UnreadNotifications},
		{"unread_messages", "messages", bson.M{"recipient_id": userID, "read": false}, &out.UnreadMessages},
		{"relationships", "advisor_student_relationships", bson.M{"student_id": userID}, &advisorStudent},
		{"relationships", "advisor_student_relationships", bson.M{"mentor_id": userID}, &advisorMentor},
		{"relationships", "critic_student_relationships", bson.M{"student_id": userID}, &criticStudent},
		{"relationships", "critic_student_relationships", bson.M{"mentor_id": userID}, &criticMentor},
	}

	var mu sync.Mutex
	failed := map[string]bool{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, c := range counters {
		g.Go(func() error {
			n, err := db.Collection(c.collection).CountDocuments(gctx, c.filter)
			if err != nil {
				mu.Lock()
				failed[c.name] = true
				mu.Unlock()
				return nil
			}
			*c.dst = n
			return nil
		})
	}
	_ = g.Wait()

	out.Relationships = advisorStudent + advisorMentor + criticStudent + criticMentor
	for name := range failed {
		out.Failed = append(out.Failed, name)
	}
	sort.Strings(out.Failed)
	return out
}
