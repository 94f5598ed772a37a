package phonebook

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PhoneFilter is the tri-state phone constraint on a person listing:
// present, absent, or no filter.
type PhoneFilter int

const (
	PhoneAny PhoneFilter = iota
	PhoneSet
	PhoneUnset
)

// Store is the persistence seam for the phonebook service.
type Store interface {
	PersonCount(ctx context.Context) (int, error)
	Persons(ctx context.Context, phone PhoneFilter) ([]*Person, error)
	PersonByID(ctx context.Context, id primitive.ObjectID) (*Person, error)
	PersonByName(ctx context.Context, name string) (*Person, error)
	PersonsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Person, error)
	InsertPerson(ctx context.Context, person *Person) error
	SetPhone(ctx context.Context, name, phone string) (*Person, error)

	UserByID(ctx context.Context, id string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	UsersWithFriend(ctx context.Context, personID primitive.ObjectID) ([]*User, error)
	InsertUser(ctx context.Context, user *User) error
	SetFriends(ctx context.Context, userID primitive.ObjectID, friendIDs []primitive.ObjectID) error
}
