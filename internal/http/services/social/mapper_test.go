package social

import (
	"testing"

	"github.com/sgarciab/authbridge/internal/oauth"
)

func TestMapAttributes_Renames(t *testing.T) {
	identity := &oauth.Identity{
		ID: "ext-1",
		Attributes: map[string]any{
			"id":            "ext-1",
			"firstname":     "Ada",
			"lastname":      "Lovelace",
			"fullname":      "Ada Lovelace",
			"emailVerified": true,
			"birthday":      "1815-12-10",
			"sex":           "female",
			"picture":       "https://img.example/a.png", // passthrough
		},
	}
	token := &oauth.Token{AccessToken: "tok"}

	got := MapAttributes(identity, token, nil)

	want := map[string]string{
		"identifier":     "ext-1",
		"first_name":     "Ada",
		"last_name":      "Lovelace",
		"full_name":      "Ada Lovelace",
		"email_verified": "",
		"birth_date":     "1815-12-10",
		"gender":         "female",
		"picture":        "https://img.example/a.png",
	}
	for k := range want {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing mapped key %q: %v", k, got)
		}
	}
	for _, old := range []string{"id", "firstname", "lastname", "fullname", "emailVerified", "birthday", "sex"} {
		if _, ok := got[old]; ok {
			t.Fatalf("provider-native key %q leaked through: %v", old, got)
		}
	}
	if got["access_token"] != token.Serialize() {
		t.Fatalf("access_token = %v", got["access_token"])
	}
}

func TestMapAttributes_Idempotent(t *testing.T) {
	token := &oauth.Token{AccessToken: "tok"}
	first := MapAttributes(&oauth.Identity{
		ID:         "x",
		Attributes: map[string]any{"id": "x", "firstname": "A"},
	}, token, nil)

	// Feeding already-canonical attributes back through must not change them.
	second := MapAttributes(&oauth.Identity{ID: "x", Attributes: first}, token, first)
	if len(second) != len(first) {
		t.Fatalf("second pass changed the key set: %v vs %v", second, first)
	}
	for k, v := range first {
		if second[k] != v {
			t.Fatalf("second pass changed %q: %v -> %v", k, v, second[k])
		}
	}
}

func TestMapAttributes_TokenAlwaysWritten(t *testing.T) {
	got := MapAttributes(&oauth.Identity{ID: "x", Attributes: map[string]any{}}, &oauth.Token{AccessToken: "t"}, nil)
	if got["access_token"] == "" {
		t.Fatal("access_token not written for empty identity")
	}
}

func TestMapAttributes_PatchRetainsStoredKeys(t *testing.T) {
	stored := map[string]any{
		"identifier":   "x",
		"locale":       "en",
		"email":        "old@b.c",
		"access_token": "tok-old",
	}
	// The new identity no longer carries locale and changes the email.
	got := MapAttributes(&oauth.Identity{
		ID:         "x",
		Attributes: map[string]any{"id": "x", "email": "new@b.c"},
	}, &oauth.Token{AccessToken: "tok-new"}, stored)

	if got["locale"] != "en" {
		t.Fatalf("stored attribute dropped: %v", got)
	}
	if got["email"] != "new@b.c" {
		t.Fatalf("fresh attribute not applied: %v", got)
	}
	if got["access_token"] == stored["access_token"] {
		t.Fatal("access_token not refreshed")
	}
	if stored["email"] != "old@b.c" {
		t.Fatal("existing map mutated in place")
	}
}
