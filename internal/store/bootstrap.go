package store

import (
	"github.com/vordr-io/vordr-go/internal/evaluator"
)

// bootstrapMatchesUser validates a bootstrap payload's declared
// identity against the current user. The payload either carries
// evaluated_keys or embeds the user it was generated for; the check
// compares userID and customIDs in both directions, ignoring stableID
// (a device identifier, not part of the evaluated identity).
//
// The check is best-effort and fails open: a payload with no identity
// information at all is accepted as valid.
func bootstrapMatchesUser(user *evaluator.User, rs *Ruleset) bool {
	declared := rs.EvaluatedKeys
	if declared == nil && rs.User != nil {
		declared = map[string]any{}
		if id, ok := rs.User["userID"]; ok {
			declared["userID"] = id
		}
		if ids, ok := rs.User["customIDs"]; ok {
			declared["customIDs"] = ids
		}
	}
	if declared == nil {
		return true
	}

	declaredID, declaredCustom := normalizeIdentity(declared)

	currentID := ""
	currentCustom := map[string]string{}
	if user != nil {
		currentID = user.UserID
		for k, v := range user.CustomIDs {
			if k == "stableID" {
				continue
			}
			currentCustom[k] = v
		}
	}

	if declaredID != currentID {
		return false
	}
	if len(declaredCustom) != len(currentCustom) {
		return false
	}
	for k, v := range declaredCustom {
		if currentCustom[k] != v {
			return false
		}
	}
	return true
}

// normalizeIdentity extracts a comparable (userID, customIDs) pair from
// an untyped identity object, dropping stableID.
func normalizeIdentity(obj map[string]any) (string, map[string]string) {
	id, _ := obj["userID"].(string)

	custom := map[string]string{}
	if raw, ok := obj["customIDs"].(map[string]any); ok {
		for k, v := range raw {
			if k == "stableID" {
				continue
			}
			if s, ok := v.(string); ok {
				custom[k] = s
			}
		}
	}
	return id, custom
}
