package models

// User is read-only to the server; provisioning happens elsewhere.
type User struct {
	ID   string
	Name string
	// TokenHash is the MD5 hex of the upload token, or "0" when the user has none.
	TokenHash string
	// DayUploads counts the user's memes stamped with today's date.
	DayUploads int
}

type UserLookup int

const (
	UserByNone UserLookup = iota
	UserByID
	UserByToken
	UserByName
)

// UserIdentifier selects a single user. UserByNone resolves to the
// anonymous user.
type UserIdentifier struct {
	Kind  UserLookup
	Value string
}

// UserIdentifierFrom picks the first non-empty of id, token and name, in
// that order.
func UserIdentifierFrom(id, token, name string) UserIdentifier {
	switch {
	case id != "":
		return UserIdentifier{Kind: UserByID, Value: id}
	case token != "":
		return UserIdentifier{Kind: UserByToken, Value: token}
	case name != "":
		return UserIdentifier{Kind: UserByName, Value: name}
	default:
		return UserIdentifier{Kind: UserByNone}
	}
}
