package vordr

import (
	"github.com/vordr-io/vordr-go/internal/evaluator"
)

// User is the identity evaluations run against. All fields are
// optional; rules that reference a missing field simply do not match.
type User struct {
	// UserID is the primary unit identifier, used for bucketing unless
	// an experiment names a custom ID type.
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

	// CustomIDs maps alternate unit ID types (e.g. "companyID") to
	// their values.
	CustomIDs map[string]string `json:"customIDs,omitempty"`
}

// toEvaluator converts to the engine's user type, stamping the
// environment tier and stable device ID the client manages.
func (u *User) toEvaluator(tier, stableID string) *evaluator.User {
	if u == nil {
		u = &User{}
	}

	eu := &evaluator.User{
		UserID:            u.UserID,
		Email:             u.Email,
		IP:                u.IP,
		UserAgent:         u.UserAgent,
		Country:           u.Country,
		Locale:            u.Locale,
		AppVersion:        u.AppVersion,
		Custom:            u.Custom,
		PrivateAttributes: u.PrivateAttributes,
	}

	if len(u.CustomIDs) > 0 || stableID != "" {
		eu.CustomIDs = make(map[string]string, len(u.CustomIDs)+1)
		for k, v := range u.CustomIDs {
			eu.CustomIDs[k] = v
		}
		if stableID != "" {
			if _, ok := eu.CustomIDs["stableID"]; !ok {
				eu.CustomIDs["stableID"] = stableID
			}
		}
	}

	if tier != "" {
		eu.Environment = map[string]string{"tier": tier}
	}

	return eu
}
