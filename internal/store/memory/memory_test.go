package memory

import (
	"context"
	"testing"

	"github.com/sgarciab/authbridge/internal/domain/repository"
)

func TestSave_UpsertKeepsIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := &repository.SocialProfile{
		Provider:   "google",
		Identifier: "ext-1",
		Attributes: map[string]any{"email": "a@b.c"},
	}
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p.ID == "" {
		t.Fatal("no ID assigned")
	}
	firstID := p.ID

	p2 := &repository.SocialProfile{
		Provider:   "google",
		Identifier: "ext-1",
		Attributes: map[string]any{"email": "new@b.c"},
	}
	if err := s.Save(ctx, p2); err != nil {
		t.Fatalf("Save 2: %v", err)
	}
	if p2.ID != firstID {
		t.Fatalf("upsert created a second record: %q != %q", p2.ID, firstID)
	}

	got, err := s.GetByProvider(ctx, "google", "ext-1")
	if err != nil {
		t.Fatalf("GetByProvider: %v", err)
	}
	if got.Attributes["email"] != "new@b.c" {
		t.Fatalf("attributes not refreshed: %v", got.Attributes)
	}
}

func TestGetByProvider_NotFound(t *testing.T) {
	s := New()
	if _, err := s.GetByProvider(context.Background(), "google", "nope"); err != repository.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFindByID_Finders(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, err := s.Create(ctx, repository.CreateUserInput{Email: "x@y.z", Name: "X"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.FindByID(ctx, repository.FinderActive, u.ID); err != nil {
		t.Fatalf("active finder on enabled user: %v", err)
	}

	s.Disable(u.ID)
	if _, err := s.FindByID(ctx, repository.FinderActive, u.ID); err != repository.ErrNotFound {
		t.Fatalf("active finder on disabled user: err = %v, want ErrNotFound", err)
	}
	if _, err := s.FindByID(ctx, repository.FinderAll, u.ID); err != nil {
		t.Fatalf("all finder on disabled user: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Create(ctx, repository.CreateUserInput{Email: "dup@y.z"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, repository.CreateUserInput{Email: "DUP@y.z"}); err != repository.ErrConflict {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}
