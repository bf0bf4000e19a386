package layoutstore_test

import (
	"errors"
	"testing"

	layoutstore "github.com/zerlake/thesisai/internal/app/store/dashboards"
	"github.com/zerlake/thesisai/internal/domain/models"
	"github.com/zerlake/thesisai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSingleDefault(t *testing.T) {
	s := layoutstore.New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	widgets := []models.DashboardWidget{{ID: "w1", Type: "progress", W: 4, H: 2}}
	a, err := s.Create(ctx, user, "Writing", widgets, true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := s.Create(ctx, user, "Defense prep", nil, true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, _ := s.List(ctx, user)
	defaults := 0
	for _, l := range list {
		if l.IsDefault {
			defaults++
			if l.ID != b.ID {
				t.Errorf("default = %v, want %v", l.ID, b.ID)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("defaults = %d, want 1", defaults)
	}

	if _, err := s.Update(ctx, user, a.ID, "Writing", widgets, true); err != nil {
		t.Fatalf("Update: %v", err)
	}
	list, _ = s.List(ctx, user)
	if !list[0].IsDefault || list[0].ID != a.ID || list[1].IsDefault {
		t.Errorf("after Update list = %+v", list)
	}

	if _, err := s.Update(ctx, primitive.NewObjectID(), a.ID, "x", nil, false); !errors.Is(err, layoutstore.ErrNotFound) {
		t.Errorf("foreign Update err = %v", err)
	}
	if err := s.Delete(ctx, user, b.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
}
