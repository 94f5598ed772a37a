package library

import (
	"context"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lewisdbentley/graphbook/errors"
)

// MemoryStore is an in-memory Store used in tests and local runs
// without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	books   map[primitive.ObjectID]*Book
	authors map[primitive.ObjectID]*Author
	users   map[primitive.ObjectID]*User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:   make(map[primitive.ObjectID]*Book),
		authors: make(map[primitive.ObjectID]*Author),
		users:   make(map[primitive.ObjectID]*User),
	}
}

func (s *MemoryStore) BookCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books), nil
}

func (s *MemoryStore) Books(_ context.Context, filter BookFilter) ([]*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Book
	for _, b := range s.books {
		if filter.AuthorID != nil && b.AuthorID != *filter.AuthorID {
			continue
		}
		if len(filter.Genres) > 0 && !hasAnyGenre(b.Genres, filter.Genres) {
			continue
		}
		dup := *b
		out = append(out, &dup)
	}
	return out, nil
}

func hasAnyGenre(have, want []string) bool {
	for _, g := range want {
		if slices.Contains(have, g) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CountBooksByAuthor(_ context.Context, authorID primitive.ObjectID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, b := range s.books {
		if b.AuthorID == authorID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) InsertBook(_ context.Context, book *Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if book.ID.IsZero() {
		book.ID = primitive.NewObjectID()
	}
	dup := *book
	s.books[book.ID] = &dup
	return nil
}

func (s *MemoryStore) AuthorCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.authors), nil
}

func (s *MemoryStore) Authors(_ context.Context) ([]*Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Author, 0, len(s.authors))
	for _, a := range s.authors {
		dup := *a
		out = append(out, &dup)
	}
	return out, nil
}

func (s *MemoryStore) AuthorByID(_ context.Context, id primitive.ObjectID) (*Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.authors[id]
	if !ok {
		return nil, errors.Wrap(errors.ErrNotFound, "MemoryStore", "AuthorByID", "author lookup")
	}
	dup := *a
	return &dup, nil
}

func (s *MemoryStore) AuthorByName(_ context.Context, name string) (*Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.authors {
		if a.Name == name {
			dup := *a
			return &dup, nil
		}
	}
	return nil, errors.Wrap(errors.ErrNotFound, "MemoryStore", "AuthorByName", "author lookup")
}

func (s *MemoryStore) InsertAuthor(_ context.Context, author *Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.authors {
		if a.Name == author.Name {
			return errors.WrapInvalid(errors.ErrDuplicateKey, "MemoryStore", "InsertAuthor", "insert")
		}
	}
	if author.ID.IsZero() {
		author.ID = primitive.NewObjectID()
	}
	dup := *author
	s.authors[author.ID] = &dup
	return nil
}

func (s *MemoryStore) SetAuthorBorn(_ context.Context, name string, born int) (*Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.authors {
		if a.Name == name {
			b := born
			a.Born = &b
			dup := *a
			return &dup, nil
		}
	}
	return nil, errors.Wrap(errors.ErrNotFound, "MemoryStore", "SetAuthorBorn", "author lookup")
}

func (s *MemoryStore) Users(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		dup := *u
		out = append(out, &dup)
	}
	return out, nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.WrapInvalid(err, "MemoryStore", "UserByID", "parse object id")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[oid]
	if !ok {
		return nil, errors.Wrap(errors.ErrNotFound, "MemoryStore", "UserByID", "user lookup")
	}
	dup := *u
	return &dup, nil
}

func (s *MemoryStore) UserByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			dup := *u
			return &dup, nil
		}
	}
	return nil, errors.Wrap(errors.ErrNotFound, "MemoryStore", "UserByUsername", "user lookup")
}

func (s *MemoryStore) InsertUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return errors.WrapInvalid(errors.ErrDuplicateKey, "MemoryStore", "InsertUser", "insert")
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	dup := *user
	s.users[user.ID] = &dup
	return nil
}

func (s *MemoryStore) SetFavoriteGenre(_ context.Context, userID primitive.ObjectID, genre string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return errors.Wrap(errors.ErrNotFound, "MemoryStore", "SetFavoriteGenre", "user lookup")
	}
	u.FavoriteGenre = genre
	return nil
}
