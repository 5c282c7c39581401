package session

// User is the signed-in identity kept in a client slot. It never carries the
// password or its hash.
type User struct {
	ID       string
	Name     []string
	Email    string
	Verified bool

	JoinedAt int64
	SavedAt  int64
}
