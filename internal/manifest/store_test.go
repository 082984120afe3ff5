package manifest

import (
	"testing"

	"github.com/mechamoby/sentry/internal/verdict"
)

func TestStore_SaveAndRecent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	for i, id := range []string{"<a@x>", "<b@x>", "<c@x>"} {
		m := &Manifest{
			Source:      "email",
			MessageID:   id,
			BodyVerdict: verdict.New(verdict.Allow, verdict.RiskLow, "clean_text"),
			ScannedAt:   int64(1000 + i),
		}
		m.Finalize()
		if _, err := store.Save(m); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	recent, err := store.Recent("email", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d manifests, want 2", len(recent))
	}
	if recent[0].MessageID != "<c@x>" || recent[1].MessageID != "<b@x>" {
		t.Errorf("wrong order: %s, %s", recent[0].MessageID, recent[1].MessageID)
	}
}

func TestStore_RecentUnknownSource(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	recent, err := store.Recent("never-seen", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("got %d manifests for unknown source", len(recent))
	}
}
