package store

import (
	"testing"

	"github.com/offtimeapp/offtime/internal/database"
)

func setupUsageTestDB(t *testing.T) (*UsageStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUsageStore(db), NewUserStore(db)
}

func TestGetOrCreateApp(t *testing.T) {
	us, _ := setupUsageTestDB(t)

	a1, err := us.GetOrCreateApp("com.example.maps", "Maps")
	if err != nil {
		t.Fatalf("get or create app: %v", err)
	}
	if a1.PackageName != "com.example.maps" {
		t.Errorf("package_name = %q, want %q", a1.PackageName, "com.example.maps")
	}

	// Second call with the same package returns the same row, even when the
	// reported display name differs.
	a2, err := us.GetOrCreateApp("com.example.maps", "Google Maps")
	if err != nil {
		t.Fatalf("get or create app again: %v", err)
	}
	if a2.ID != a1.ID {
		t.Errorf("id = %d, want %d", a2.ID, a1.ID)
	}
	if a2.AppName != "Maps" {
		t.Errorf("app_name = %q, want %q", a2.AppName, "Maps")
	}
}

func TestCreateRecord(t *testing.T) {
	us, userStore := setupUsageTestDB(t)

	u, _ := userStore.Create("alice", "hash")
	app, _ := us.GetOrCreateApp("com.example.maps", "Maps")

	r, err := us.CreateRecord(u.ID, app.ID, 90_000, 1000, 91_000)
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	if r.UsageMS != 90_000 {
		t.Errorf("usage_ms = %d, want %d", r.UsageMS, 90_000)
	}
	if r.Memo != nil {
		t.Error("expected nil memo on a fresh record")
	}
}

func TestListForUserRange(t *testing.T) {
	us, userStore := setupUsageTestDB(t)

	u, _ := userStore.Create("alice", "hash")
	app, _ := us.GetOrCreateApp("com.example.maps", "Maps")

	us.CreateRecord(u.ID, app.ID, 1000, 500, 1500)
	us.CreateRecord(u.ID, app.ID, 1000, 100, 1100)
	us.CreateRecord(u.ID, app.ID, 1000, 2000, 3000)

	// [100, 2000) excludes the record starting at 2000.
	records, err := us.ListForUserRange(u.ID, 100, 2000)
	if err != nil {
		t.Fatalf("list for user range: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].StartTime != 100 || records[1].StartTime != 500 {
		t.Errorf("start times = %d, %d, want 100, 500", records[0].StartTime, records[1].StartTime)
	}
}

func TestListForUserRangeScopedToUser(t *testing.T) {
	us, userStore := setupUsageTestDB(t)

	u1, _ := userStore.Create("alice", "hash")
	u2, _ := userStore.Create("bob", "hash")
	app, _ := us.GetOrCreateApp("com.example.maps", "Maps")

	us.CreateRecord(u1.ID, app.ID, 1000, 100, 1100)
	us.CreateRecord(u2.ID, app.ID, 1000, 200, 1200)

	records, err := us.ListForUserRange(u1.ID, 0, 10_000)
	if err != nil {
		t.Fatalf("list for user range: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].UserID != u1.ID {
		t.Errorf("user_id = %d, want %d", records[0].UserID, u1.ID)
	}
}

func TestListForUserNewestFirst(t *testing.T) {
	us, userStore := setupUsageTestDB(t)

	u, _ := userStore.Create("alice", "hash")
	app, _ := us.GetOrCreateApp("com.example.maps", "Maps")

	us.CreateRecord(u.ID, app.ID, 1000, 100, 1100)
	us.CreateRecord(u.ID, app.ID, 1000, 300, 1300)
	us.CreateRecord(u.ID, app.ID, 1000, 200, 1200)

	records, err := us.ListForUser(u.ID)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].StartTime != 300 {
		t.Errorf("first start_time = %d, want 300", records[0].StartTime)
	}
}

func TestSetAndClearMemo(t *testing.T) {
	us, userStore := setupUsageTestDB(t)

	u, _ := userStore.Create("alice", "hash")
	app, _ := us.GetOrCreateApp("com.example.maps", "Maps")
	r, _ := us.CreateRecord(u.ID, app.ID, 1000, 100, 1100)

	if err := us.SetMemo(r.ID, "navigating to work"); err != nil {
		t.Fatalf("set memo: %v", err)
	}
	got, err := us.GetRecord(r.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if got.Memo == nil || *got.Memo != "navigating to work" {
		t.Errorf("memo = %v, want %q", got.Memo, "navigating to work")
	}

	if err := us.ClearMemo(r.ID); err != nil {
		t.Fatalf("clear memo: %v", err)
	}
	got, err = us.GetRecord(r.ID)
	if err != nil {
		t.Fatalf("get record after clear: %v", err)
	}
	if got.Memo != nil {
		t.Errorf("memo = %v, want nil", got.Memo)
	}
}
