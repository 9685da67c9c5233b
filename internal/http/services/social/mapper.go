package social

import (
	"github.com/sgarciab/authbridge/internal/oauth"
)

// attributeRenames normalizes provider-native attribute names onto the
// canonical profile schema. Keys not listed here pass through unchanged,
// which also makes the mapping idempotent: canonical names are never
// themselves rename sources.
var attributeRenames = map[string]string{
	"id":            "identifier",
	"lastname":      "last_name",
	"firstname":     "first_name",
	"birthday":      "birth_date",
	"emailVerified": "email_verified",
	"fullname":      "full_name",
	"sex":           "gender",
}

// MapAttributes patches an external identity onto the attribute set stored
// on the social profile. Identity fields overwrite their stored counterparts;
// stored attributes the identity no longer carries are retained, so a leaner
// payload on a later login cannot erase what an earlier one provided. The
// provider token is always serialized under access_token, even when the
// identity carries no other attributes. existing may be nil (first login).
func MapAttributes(identity *oauth.Identity, token *oauth.Token, existing map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(identity.Attributes)+1)
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range identity.Attributes {
		if canonical, ok := attributeRenames[k]; ok {
			k = canonical
		}
		out[k] = v
	}
	out["access_token"] = token.Serialize()
	return out
}
