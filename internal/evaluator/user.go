package evaluator

import "strings"

// User is the identity a ruleset is evaluated against. All fields are
// optional; rules that reference a missing field simply do not match.
type User struct {
	// UserID is the primary unit identifier, used for bucketing unless a
	// rule names a custom ID type.
	UserID string `json:"userID,omitempty"`

	Email      string `json:"email,omitempty"`
	IP         string `json:"ip,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
	Country    string `json:"country,omitempty"`
	Locale     string `json:"locale,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`

	// Custom holds arbitrary targeting attributes.
	Custom map[string]any `json:"custom,omitempty"`

	// PrivateAttributes are evaluated like Custom but are stripped from
	// any payload that leaves the process.
	PrivateAttributes map[string]any `json:"privateAttributes,omitempty"`

	// CustomIDs maps alternate unit ID types (e.g. "companyID") to their
	// values for experiments that bucket on something other than userID.
	CustomIDs map[string]string `json:"customIDs,omitempty"`

	// Environment is the deployment tier bag (e.g. {"tier": "staging"})
	// consulted by environment_field conditions.
	Environment map[string]string `json:"statsigEnvironment,omitempty"`
}

// UnitID resolves the identifier a rule buckets on. An empty or
// "userid" idType selects UserID; anything else is looked up in
// CustomIDs, exact key first, lowercased key second.
func (u *User) UnitID(idType string) string {
	if u == nil {
		return ""
	}
	if idType == "" || strings.EqualFold(idType, "userid") {
		return u.UserID
	}
	if v, ok := u.CustomIDs[idType]; ok {
		return v
	}
	return u.CustomIDs[strings.ToLower(idType)]
}

// canonicalMap renders the user as a plain map so UserHash sees a
// stable, key-sorted JSON form independent of struct field order.
func (u *User) canonicalMap() map[string]any {
	m := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	put("userID", u.UserID)
	put("email", u.Email)
	put("ip", u.IP)
	put("userAgent", u.UserAgent)
	put("country", u.Country)
	put("locale", u.Locale)
	put("appVersion", u.AppVersion)
	if len(u.Custom) > 0 {
		m["custom"] = u.Custom
	}
	if len(u.PrivateAttributes) > 0 {
		m["privateAttributes"] = u.PrivateAttributes
	}
	if len(u.CustomIDs) > 0 {
		m["customIDs"] = u.CustomIDs
	}
	if len(u.Environment) > 0 {
		m["statsigEnvironment"] = u.Environment
	}
	return m
}
