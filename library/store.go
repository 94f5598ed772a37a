package library

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookFilter narrows a book listing. A nil AuthorID means no author
// constraint; empty Genres means no genre constraint. When both are set
// the result is their intersection: books by the author carrying any of
// the requested genres.
type BookFilter struct {
	AuthorID *primitive.ObjectID
	Genres   []string
}

// Store is the persistence seam for the library service. The Mongo
// implementation backs production; tests run against the memory one.
type Store interface {
	BookCount(ctx context.Context) (int, error)
	Books(ctx context.Context, filter BookFilter) ([]*Book, error)
	CountBooksByAuthor(ctx context.Context, authorID primitive.ObjectID) (int, error)
	InsertBook(ctx context.Context, book *Book) error

	AuthorCount(ctx context.Context) (int, error)
	Authors(ctx context.Context) ([]*Author, error)
	AuthorByID(ctx context.Context, id primitive.ObjectID) (*Author, error)
	AuthorByName(ctx context.Context, name string) (*Author, error)
	InsertAuthor(ctx context.Context, author *Author) error
	SetAuthorBorn(ctx context.Context, name string, born int) (*Author, error)

	Users(ctx context.Context) ([]*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	InsertUser(ctx context.Context, user *User) error
	SetFavoriteGenre(ctx context.Context, userID primitive.ObjectID, genre string) error
}
