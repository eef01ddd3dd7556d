// Package domain contains entities without logic, just meta-data
package domain

// Credential is one provider session with a token per role.
// It is loaded once and never mutated.
type Credential struct {
	SessionID       string `json:"session_id" mapstructure:"session_id"`
	PublisherToken  string `json:"publisher_token" mapstructure:"publisher_token"`
	SubscriberToken string `json:"subscriber_token" mapstructure:"subscriber_token"`
}

// TokenFor picks the token matching the slot role.
func (c Credential) TokenFor(role Role) string {
	if role == RolePublisher {
		return c.PublisherToken
	}
	return c.SubscriberToken
}

// UserSide tells which of the two local users this device acts as.
type UserSide int

const (
	UserOne UserSide = iota + 1
	UserTwo
)

func (s UserSide) Valid() bool { return s == UserOne || s == UserTwo }
