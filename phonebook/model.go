package phonebook

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lewisdbentley/graphbook/errors"
)

// Person is one directory entry. The address fields are stored flat and
// grouped into an Address object at read time.
type Person struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	Name   string             `bson:"name"`
	Phone  *string            `bson:"phone,omitempty"`
	Street string             `bson:"street"`
	City   string             `bson:"city"`
}

// Validate checks the persistence constraints on a person.
func (p *Person) Validate() error {
	if len(p.Name) < 5 {
		return errors.WrapInvalidArgs(errors.ErrInvalidConfig, "Person", "Validate",
			"name must be at least 5 characters", map[string]any{"name": p.Name})
	}
	if p.Street == "" || p.City == "" {
		return errors.WrapInvalidArgs(errors.ErrInvalidConfig, "Person", "Validate",
			"street and city are required", map[string]any{"name": p.Name})
	}
	return nil
}

// User is a phonebook account. FriendIDs is the stored friends list;
// Friends carries the eagerly loaded records and is never persisted.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Username     string               `bson:"username"`
	PasswordHash []byte               `bson:"passwordHash"`
	FriendIDs    []primitive.ObjectID `bson:"friends"`

	Friends []*Person `bson:"-"`
}

// Validate checks the persistence constraints on a user.
func (u *User) Validate() error {
	if len(u.Username) < 3 {
		return errors.WrapInvalidArgs(errors.ErrInvalidConfig, "User", "Validate",
			"username must be at least 3 characters", map[string]any{"username": u.Username})
	}
	if len(u.PasswordHash) == 0 {
		return errors.WrapInvalidArgs(errors.ErrInvalidConfig, "User", "Validate",
			"password is required", map[string]any{"username": u.Username})
	}
	return nil
}

// HasFriend reports whether the person is already in the friends list.
func (u *User) HasFriend(personID primitive.ObjectID) bool {
	for _, id := range u.FriendIDs {
		if id == personID {
			return true
		}
	}
	return false
}

// Token is a login result.
type Token struct {
	Value string
}
