package relationshipstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/zerlake/thesisai/internal/app/system/txn"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names.
const (
	RequestsCollection = "relationship_requests"
	AdvisorCollection  = "advisor_student_relationships"
	CriticCollection   = "critic_student_relationships"
)

var (
	ErrNotFound      = errors.New("relationship request not found")
	ErrNotPending    = errors.New("request is no longer pending")
	ErrPendingExists = errors.New("a pending request already exists")
	ErrAlreadyLinked = errors.New("already linked")
	ErrLinkNotFound  = errors.New("relationship not found")
	errUnknownKind   = errors.New(`kind must be "advisor"|"critic"`)
)

// Slots hands out and returns mentor capacity. The profile store implements it.
type Slots interface {
	TakeSlot(ctx context.Context, mentorID primitive.ObjectID, kind string) error
	ReturnSlot(ctx context.Context, mentorID primitive.ObjectID, kind string) error
}

type Store struct {
	client   *mongo.Client
	requests *mongo.Collection
	advisors *mongo.Collection
	critics  *mongo.Collection
	log      *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		client:   db.Client(),
		requests: db.Collection(RequestsCollection),
		advisors: db.Collection(AdvisorCollection),
		critics:  db.Collection(CriticCollection),
		log:      logger,
	}
}

func (s *Store) links(kind string) (*mongo.Collection, error) {
	switch kind {
	case models.KindAdvisor:
		return s.advisors, nil
	case models.KindCritic:
		return s.critics, nil
	}
	return nil, errUnknownKind
}

// EnsureIndexes creates the pair uniqueness indexes. A partial unique index
// allows one pending request per (kind, student, mentor).
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.advisors, s.critics} {
		_, err := c.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "mentor_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_pair")},
			{Keys: bson.D{{Key: "mentor_id", Value: 1}}},
		})
		if err != nil {
			return err
		}
	}
	_, err := s.requests.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "kind", Value: 1}, {Key: "student_id", Value: 1}, {Key: "mentor_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_pending").
				SetPartialFilterExpression(bson.M{"status": models.RequestPending}),
		},
		{Keys: bson.D{{Key: "mentor_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// CreateRequest stores a pending request from student to mentor.
func (s *Store) CreateRequest(ctx context.Context, kind string, studentID, mentorID primitive.ObjectID, message string) (models.RelationshipRequest, error) {
	linked, err := s.Linked(ctx, kind, studentID, mentorID)
	if err != nil {
		return models.RelationshipRequest{}, err
	}
	if linked {
		return models.RelationshipRequest{}, ErrAlreadyLinked
	}
	req := models.RelationshipRequest{
		ID:        primitive.NewObjectID(),
		Kind:      kind,
		StudentID: studentID,
		MentorID:  mentorID,
		Message:   message,
		Status:    models.RequestPending,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.requests.InsertOne(ctx, req); err != nil {
		if wafflemongo.IsDup(err) {
			return models.RelationshipRequest{}, ErrPendingExists
		}
		return models.RelationshipRequest{}, err
	}
	return req, nil
}

// GetRequest loads a request of kind.
func (s *Store) GetRequest(ctx context.Context, kind string, id primitive.ObjectID) (*models.RelationshipRequest, error) {
	var req models.RelationshipRequest
	err := s.requests.FindOne(ctx, bson.M{"_id": id, "kind": kind}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListRequests returns requests of kind where userID is the mentor
// (incoming) or the student (outgoing). An empty status matches all.
func (s *Store) ListRequests(ctx context.Context, kind string, userID primitive.ObjectID, incoming bool, status string) ([]models.RelationshipRequest, error) {
	field := "student_id"
	if incoming {
		field = "mentor_id"
	}
	filter := bson.M{"kind": kind, field: userID}
	if status != "" {
		filter["status"] = status
	}
	cur, err := s.requests.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(200))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.RelationshipRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decide moves a pending request to status. party is "mentor_id" or
// "student_id" and must equal actor.
func (s *Store) decide(ctx context.Context, kind string, id primitive.ObjectID, party string, actor primitive.ObjectID, status string) (*models.RelationshipRequest, error) {
	now := time.Now().UTC()
	var req models.RelationshipRequest
	err := s.requests.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "kind": kind, party: actor, "status": models.RequestPending},
		bson.M{"$set": bson.M{"status": status, "decided_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.missOrStale(ctx, kind, id, party, actor)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// missOrStale tells a request that was never the actor's from one that
// already left pending.
func (s *Store) missOrStale(ctx context.Context, kind string, id primitive.ObjectID, party string, actor primitive.ObjectID) error {
	n, err := s.requests.CountDocuments(ctx, bson.M{"_id": id, "kind": kind, party: actor})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrNotPending
}

// Decline is the mentor turning a request down.
func (s *Store) Decline(ctx context.Context, kind string, id, mentorID primitive.ObjectID) (*models.RelationshipRequest, error) {
	return s.decide(ctx, kind, id, "mentor_id", mentorID, models.RequestDeclined)
}

// Cancel is the student withdrawing a request.
func (s *Store) Cancel(ctx context.Context, kind string, id, studentID primitive.ObjectID) (*models.RelationshipRequest, error) {
	return s.decide(ctx, kind, id, "student_id", studentID, models.RequestCancelled)
}

// Accept links the student to the mentor: it consumes a mentor slot, inserts
// the relationship, and marks the request accepted, all or nothing. Without
// transaction support each step undoes the earlier ones on failure.
func (s *Store) Accept(ctx context.Context, kind string, id, mentorID primitive.ObjectID, slots Slots) (models.Relationship, error) {
	links, err := s.links(kind)
	if err != nil {
		return models.Relationship{}, err
	}

	var rel models.Relationship
	err = txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		var req models.RelationshipRequest
		err := s.requests.FindOne(ctx, bson.M{"_id": id, "kind": kind, "mentor_id": mentorID}).Decode(&req)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return ErrNotPending
		}

		if err := slots.TakeSlot(ctx, mentorID, kind); err != nil {
			return err
		}
		compensate := txn.Compensating(ctx)

		rel = models.Relationship{
			ID:        primitive.NewObjectID(),
			StudentID: req.StudentID,
			MentorID:  mentorID,
			RequestID: req.ID,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := links.InsertOne(ctx, rel); err != nil {
			if compensate {
				s.undo("return slot", slots.ReturnSlot(context.WithoutCancel(ctx), mentorID, kind))
			}
			if wafflemongo.IsDup(err) {
				return ErrAlreadyLinked
			}
			return err
		}

		res, err := s.requests.UpdateOne(ctx,
			bson.M{"_id": id, "status": models.RequestPending},
			bson.M{"$set": bson.M{"status": models.RequestAccepted, "decided_at": rel.CreatedAt}},
		)
		if err == nil && res.ModifiedCount == 0 {
			err = ErrNotPending
		}
		if err != nil && compensate {
			uctx := context.WithoutCancel(ctx)
			_, derr := links.DeleteOne(uctx, bson.M{"_id": rel.ID})
			s.undo("delete link", derr)
			s.undo("return slot", slots.ReturnSlot(uctx, mentorID, kind))
		}
		return err
	})
	if err != nil {
		return models.Relationship{}, err
	}
	return rel, nil
}

func (s *Store) undo(step string, err error) {
	if err != nil && s.log != nil {
		s.log.Error("relationship accept compensation failed", zap.String("step", step), zap.Error(err))
	}
}

// Linked reports whether student and mentor are linked as kind.
func (s *Store) Linked(ctx context.Context, kind string, studentID, mentorID primitive.ObjectID) (bool, error) {
	links, err := s.links(kind)
	if err != nil {
		return false, err
	}
	n, err := links.CountDocuments(ctx, bson.M{"student_id": studentID, "mentor_id": mentorID}, options.Count().SetLimit(1))
	return n > 0, err
}

// Connected reports whether a and b are linked under any kind, in either
// direction.
func (s *Store) Connected(ctx context.Context, a, b primitive.ObjectID) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"student_id": a, "mentor_id": b},
		bson.M{"student_id": b, "mentor_id": a},
	}}
	for _, c := range []*mongo.Collection{s.advisors, s.critics} {
		n, err := c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Remove deletes the link. The caller returns the slot to the mentor.
func (s *Store) Remove(ctx context.Context, kind string, studentID, mentorID primitive.ObjectID) error {
	links, err := s.links(kind)
	if err != nil {
		return err
	}
	res, err := links.DeleteOne(ctx, bson.M{"student_id": studentID, "mentor_id": mentorID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// ListFor returns userID's links of kind, as student or as mentor.
func (s *Store) ListFor(ctx context.Context, kind string, userID primitive.ObjectID) ([]models.Relationship, error) {
	links, err := s.links(kind)
	if err != nil {
		return nil, err
	}
	cur, err := links.Find(ctx,
		bson.M{"$or": bson.A{bson.M{"student_id": userID}, bson.M{"mentor_id": userID}}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Relationship{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountFor counts userID's links across both kinds.
func (s *Store) CountFor(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	filter := bson.M{"$or": bson.A{bson.M{"student_id": userID}, bson.M{"mentor_id": userID}}}
	var total int64
	for _, c := range []*mongo.Collection{s.advisors, s.critics} {
		n, err := c.CountDocuments(ctx, filter)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
