package evaluator

import "strings"

// userField resolves a condition's field against the user following the
// exact precedence the server assumes:
//
//	top-level field -> top-level lowercased -> custom -> custom
//	lowercased -> privateAttributes -> privateAttributes lowercased
//
// The order is load-bearing: rulesets are authored against it, and an
// ad hoc reimplementation is the most likely source of behavioral
// drift, so every caller goes through this single helper. A nil second
// return means the field is absent everywhere.
func userField(user *User, field string) (any, bool) {
	if user == nil {
		return nil, false
	}

	if v, ok := topLevelField(user, field); ok {
		return v, true
	}
	if v, ok := topLevelField(user, strings.ToLower(field)); ok {
		return v, true
	}

	for _, bag := range []map[string]any{user.Custom, user.PrivateAttributes} {
		if v, ok := bag[field]; ok && v != nil {
			return v, true
		}
		if v, ok := bag[strings.ToLower(field)]; ok && v != nil {
			return v, true
		}
	}

	return nil, false
}

// topLevelField maps the well-known top-level attribute names onto the
// struct. Empty values are treated as absent so the lookup falls
// through to the custom bags, matching a sparse user object.
func topLevelField(user *User, field string) (any, bool) {
	var v string
	switch field {
	case "userID":
		v = user.UserID
	case "email":
		v = user.Email
	case "ip":
		v = user.IP
	case "userAgent":
		v = user.UserAgent
	case "country":
		v = user.Country
	case "locale":
		v = user.Locale
	case "appVersion":
		v = user.AppVersion
	default:
		return nil, false
	}
	if v == "" {
		return nil, false
	}
	return v, true
}

// environmentField resolves a field against the user's environment bag
// with a case-insensitive key match.
func environmentField(user *User, field string) (any, bool) {
	if user == nil || len(user.Environment) == 0 {
		return nil, false
	}
	if v, ok := user.Environment[field]; ok {
		return v, true
	}
	lower := strings.ToLower(field)
	for k, v := range user.Environment {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	return nil, false
}
