package library

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lewisdbentley/graphbook/errors"
)

// Book is one catalog entry. The author is stored as a reference and
// resolved to a full Author record at read time.
type Book struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Published int                `bson:"published"`
	AuthorID  primitive.ObjectID `bson:"author"`
	Genres    []string           `bson:"genres"`
}

// Validate checks the persistence constraints on a book.
func (b *Book) Validate() error {
	if len(b.Title) < 2 {
		return errors.WrapInvalidArgs(errors.ErrInvalidConfig, "Book", "Validate",
			"title must be at least 2 characters", map[string]any{"title": b.Title})
	}
	if b.AuthorID.IsZero() {
		return errors.WrapInvalidArgs(errors.ErrInvalidConfig, "Book", "Validate",
			"author reference is required", map[string]any{"title": b.Title})
	}
	return nil
}

// Author is a book author. BookCount is not stored; it is derived by
// counting books whose author reference matches.
type Author struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
	Born *int               `bson:"born,omitempty"`
}

// Validate checks the persistence constraints on an author.
func (a *Author) Validate() error {
	if len(a.Name) < 4 {
		return errors.WrapInvalidArgs(errors.ErrInvalidConfig, "Author", "Validate",
			"name must be at least 4 characters", map[string]any{"name": a.Name})
	}
	return nil
}

// User is a library account. The password never leaves the service;
// only its bcrypt hash is stored.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Username      string             `bson:"username"`
	FavoriteGenre string             `bson:"favoriteGenre"`
	PasswordHash  []byte             `bson:"passwordHash"`
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

// Token is a login result.
type Token struct {
	Value string
}
