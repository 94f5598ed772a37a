package phonebook

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lewisdbentley/graphbook/errors"
)

// MemoryStore is an in-memory Store used in tests and local runs
// without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	persons map[primitive.ObjectID]*Person
	users   map[primitive.ObjectID]*User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		persons: make(map[primitive.ObjectID]*Person),
		users:   make(map[primitive.ObjectID]*User),
	}
}

func copyPerson(p *Person) *Person {
	dup := *p
	if p.Phone != nil {
		phone := *p.Phone
		dup.Phone = &phone
	}
	return &dup
}

func copyUser(u *User) *User {
	dup := *u
	dup.FriendIDs = append([]primitive.ObjectID(nil), u.FriendIDs...)
	dup.Friends = nil
	return &dup
}

func (s *MemoryStore) PersonCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.persons), nil
}

func (s *MemoryStore) Persons(_ context.Context, phone PhoneFilter) ([]*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Person
	for _, p := range s.persons {
		switch phone {
		case PhoneSet:
			if p.Phone == nil {
				continue
			}
		case PhoneUnset:
			if p.Phone != nil {
				continue
			}
		}
		out = append(out, copyPerson(p))
	}
	return out, nil
}

func (s *MemoryStore) PersonByID(_ context.Context, id primitive.ObjectID) (*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.persons[id]
	if !ok {
		return nil, errors.Wrap(errors.ErrNotFound, "MemoryStore", "PersonByID", "person lookup")
	}
	return copyPerson(p), nil
}

func (s *MemoryStore) PersonByName(_ context.Context, name string) (*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.persons {
		if p.Name == name {
			return copyPerson(p), nil
		}
	}
	return nil, errors.Wrap(errors.ErrNotFound, "MemoryStore", "PersonByName", "person lookup")
}

func (s *MemoryStore) PersonsByIDs(_ context.Context, ids []primitive.ObjectID) ([]*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Person, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.persons[id]; ok {
			out = append(out, copyPerson(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertPerson(_ context.Context, person *Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.persons {
		if p.Name == person.Name {
			return errors.WrapInvalid(errors.ErrDuplicateKey, "MemoryStore", "InsertPerson", "insert")
		}
	}
	if person.ID.IsZero() {
		person.ID = primitive.NewObjectID()
	}
	s.persons[person.ID] = copyPerson(person)
	return nil
}

func (s *MemoryStore) SetPhone(_ context.Context, name, phone string) (*Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.persons {
		if p.Name == name {
			value := phone
			p.Phone = &value
			return copyPerson(p), nil
		}
	}
	return nil, errors.Wrap(errors.ErrNotFound, "MemoryStore", "SetPhone", "person lookup")
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

	dup := copyUser(u)
	for _, friendID := range dup.FriendIDs {
		if p, ok := s.persons[friendID]; ok {
			dup.Friends = append(dup.Friends, copyPerson(p))
		}
	}
	return dup, nil
}

func (s *MemoryStore) UserByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, errors.Wrap(errors.ErrNotFound, "MemoryStore", "UserByUsername", "user lookup")
}

func (s *MemoryStore) UsersWithFriend(_ context.Context, personID primitive.ObjectID) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*User
	for _, u := range s.users {
		if u.HasFriend(personID) {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
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
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *MemoryStore) SetFriends(_ context.Context, userID primitive.ObjectID, friendIDs []primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return errors.Wrap(errors.ErrNotFound, "MemoryStore", "SetFriends", "user lookup")
	}
	u.FriendIDs = append([]primitive.ObjectID(nil), friendIDs...)
	return nil
}
