package models

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role          Role
		canModerate   bool
		canAdminister bool
	}{
		{RoleUser, false, false},
		{RoleModerator, true, false},
		{RoleAdmin, true, true},
		{Role("root"), false, false},
	}
	for _, tt := range tests {
		if got := tt.role.CanModerate(); got != tt.canModerate {
			t.Errorf("%s.CanModerate() = %v, want %v", tt.role, got, tt.canModerate)
		}
		if got := tt.role.CanAdminister(); got != tt.canAdminister {
			t.Errorf("%s.CanAdminister() = %v, want %v", tt.role, got, tt.canAdminister)
		}
	}

	if r, ok := ParseRole(" Admin "); !ok || r != RoleAdmin {
		t.Errorf("ParseRole(Admin) = %q, %v", r, ok)
	}
	if _, ok := ParseRole("superuser"); ok {
		t.Error("ParseRole(superuser) should be invalid")
	}
}

func TestCommentStatusTransitions(t *testing.T) {
	allowed := map[CommentStatus][]CommentStatus{
		CommentPending: {CommentApproved, CommentRejected, CommentFlagged},
		CommentFlagged: {CommentApproved, CommentRejected},
	}
	all := []CommentStatus{CommentPending, CommentApproved, CommentFlagged, CommentRejected}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}

	if !CommentApproved.IsTerminal() || !CommentRejected.IsTerminal() {
		t.Error("approved and rejected must be terminal")
	}
	if CommentPending.IsTerminal() || CommentFlagged.IsTerminal() {
		t.Error("pending and flagged must not be terminal")
	}
	if _, ok := ParseCommentStatus("deleted"); ok {
		t.Error("ParseCommentStatus(deleted) should be invalid")
	}
}

func TestSocialPosted(t *testing.T) {
	var s SocialPosted
	s.Mark(PlatformTwitter)
	if !s.Has(PlatformTwitter) || s.Has(PlatformFacebook) {
		t.Errorf("after marking twitter got %+v", s)
	}
	if p, ok := ParsePlatform("Facebook"); !ok || p.Column() != "social_posted_facebook" {
		t.Errorf("ParsePlatform(Facebook) = %q, %v", p, ok)
	}
	if _, ok := ParsePlatform("myspace"); ok {
		t.Error("ParsePlatform(myspace) should be invalid")
	}
}

func TestCategories(t *testing.T) {
	if got := len(Categories()); got != 5 {
		t.Fatalf("len(Categories()) = %d, want 5", got)
	}
	c, ok := CategoryBySlug("science")
	if !ok || c.Name != "Science" {
		t.Errorf("CategoryBySlug(science) = %+v, %v", c, ok)
	}
	if !IsKnownCategory("technology") || !IsKnownCategory("World") {
		t.Error("known categories by slug and by name")
	}
	if IsKnownCategory("Sports") {
		t.Error("Sports is not a category")
	}

	cats := Categories()
	cats[0].Name = "Mutated"
	if c, _ := CategoryBySlug("technology"); c.Name != "Technology" {
		t.Error("Categories() must return a copy")
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "models.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestModelColumnsIncludesEmbeddedSocialFlags(t *testing.T) {
	db := openTestDB(t)

	columns, table, err := ModelColumns(db, &Post{})
	if err != nil {
		t.Fatalf("ModelColumns() error = %v", err)
	}
	if table != "posts" {
		t.Errorf("table = %q, want posts", table)
	}
	want := map[string]bool{"social_posted_facebook": false, "social_posted_twitter": false, "views": false}
	for _, c := range columns {
		if _, ok := want[c]; ok {
			want[c] = true
		}
	}
	for c, seen := range want {
		if !seen {
			t.Errorf("column %s missing from %v", c, columns)
		}
	}
}

func TestMigrateAndMismatchReport(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.Exec("ALTER TABLE posts ADD COLUMN legacy_slug text").Error; err != nil {
		t.Fatalf("alter: %v", err)
	}

	dbColumns, err := getTableColumns(db, "posts")
	if err != nil {
		t.Fatalf("getTableColumns() error = %v", err)
	}
	modelColumns, _, err := ModelColumns(db, &Post{})
	if err != nil {
		t.Fatalf("ModelColumns() error = %v", err)
	}
	mismatches := FindColumnMismatches(dbColumns, modelColumns)
	if len(mismatches) != 1 || mismatches[0] != "legacy_slug" {
		t.Errorf("mismatches = %v, want [legacy_slug]", mismatches)
	}

	if _, err := getTableColumns(db, "missing_table"); err == nil {
		t.Error("expected error for missing table")
	}
}
