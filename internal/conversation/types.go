// Package conversation holds the per-client chat history: an in-memory store
// of ordered turns, a recorder that appends to it, and a windower that derives
// the bounded slice sent to the language model.
package conversation

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// AnonymousClientID is the sentinel used when a request carries no client id.
const AnonymousClientID = "anonymous"

// Turn is one role-tagged message unit. Immutable once appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CanonicalClientID maps an absent client id to the anonymous sentinel.
// Client ids are otherwise opaque; no format validation is performed.
func CanonicalClientID(id string) string {
	if id == "" {
		return AnonymousClientID
	}
	return id
}
