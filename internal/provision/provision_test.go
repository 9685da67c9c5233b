package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/sgarciab/authbridge/internal/domain/repository"
	"github.com/sgarciab/authbridge/internal/security/password"
	"github.com/sgarciab/authbridge/internal/store/memory"
)

type recordingSender struct {
	to      []string
	failAll bool
}

func (s *recordingSender) Send(to, subject, htmlBody, textBody string) error {
	if s.failAll {
		return errors.New("smtp down")
	}
	s.to = append(s.to, to)
	return nil
}

func profileWith(attrs map[string]any) *repository.SocialProfile {
	return &repository.SocialProfile{
		ID:         "p1",
		Provider:   "google",
		Identifier: "ext-1",
		Attributes: attrs,
	}
}

func TestDefault_CreatesUser(t *testing.T) {
	store := memory.New()
	sender := &recordingSender{}
	fn := Default(Deps{Users: store, Mailer: sender})

	u, err := fn(context.Background(), profileWith(map[string]any{
		"email":      "ada@example.com",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	}))
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if u.Email != "ada@example.com" || u.Name != "Ada Lovelace" {
		t.Fatalf("bad user: %+v", u)
	}
	if u.PasswordHash == "" || !regexpPHC(u.PasswordHash) {
		t.Fatalf("placeholder secret not hashed: %q", u.PasswordHash)
	}
	if password.Verify("", u.PasswordHash) {
		t.Fatal("empty password verified against placeholder")
	}
	if len(sender.to) != 1 || sender.to[0] != "ada@example.com" {
		t.Fatalf("welcome email not sent: %v", sender.to)
	}
}

func regexpPHC(s string) bool {
	return len(s) > 10 && s[:10] == "$argon2id$"
}

func TestDefault_EmailRequired(t *testing.T) {
	fn := Default(Deps{Users: memory.New()})
	if _, err := fn(context.Background(), profileWith(map[string]any{"full_name": "X"})); err == nil {
		t.Fatal("provisioned a user without email")
	}
}

func TestDefault_MailFailureDoesNotFailLogin(t *testing.T) {
	fn := Default(Deps{Users: memory.New(), Mailer: &recordingSender{failAll: true}})
	u, err := fn(context.Background(), profileWith(map[string]any{"email": "a@b.c"}))
	if err != nil {
		t.Fatalf("mail failure leaked: %v", err)
	}
	if u == nil {
		t.Fatal("no user")
	}
}

func TestDefault_NameFallbacks(t *testing.T) {
	store := memory.New()
	fn := Default(Deps{Users: store})

	u, err := fn(context.Background(), profileWith(map[string]any{
		"email": "solo@example.com",
		"login": "solo",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "solo" {
		t.Fatalf("name = %q, want login fallback", u.Name)
	}
}
