package phonebook

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lewisdbentley/graphbook/errors"
	"github.com/lewisdbentley/graphbook/mongostore"
)

const (
	personsCollection = "persons"
	usersCollection   = "users"
)

// MongoStore implements Store on MongoDB collections.
type MongoStore struct {
	persons *mongo.Collection
	users   *mongo.Collection
}

// NewMongoStore creates a store over the given client's database.
func NewMongoStore(client *mongostore.Client) *MongoStore {
	return &MongoStore{
		persons: client.Collection(personsCollection),
		users:   client.Collection(usersCollection),
	}
}

// EnsureIndexes creates the unique indexes the store relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return mongostore.MapError(err, "MongoStore", "EnsureIndexes", "username index")
	}

	_, err = s.persons.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return mongostore.MapError(err, "MongoStore", "EnsureIndexes", "person name index")
	}

	return nil
}

func (s *MongoStore) PersonCount(ctx context.Context) (int, error) {
	n, err := s.persons.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, mongostore.MapError(err, "MongoStore", "PersonCount", "count documents")
	}
	return int(n), nil
}

func (s *MongoStore) Persons(ctx context.Context, phone PhoneFilter) ([]*Person, error) {
	query := bson.D{}
	switch phone {
	case PhoneSet:
		query = append(query, bson.E{Key: "phone", Value: bson.D{{Key: "$exists", Value: true}}})
	case PhoneUnset:
		query = append(query, bson.E{Key: "phone", Value: bson.D{{Key: "$exists", Value: false}}})
	}

	cursor, err := s.persons.Find(ctx, query)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "Persons", "find")
	}

	var persons []*Person
	if err := cursor.All(ctx, &persons); err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "Persons", "decode")
	}
	return persons, nil
}

func (s *MongoStore) PersonByID(ctx context.Context, id primitive.ObjectID) (*Person, error) {
	var person Person
	err := s.persons.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&person)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "PersonByID", "find one")
	}
	return &person, nil
}

func (s *MongoStore) PersonByName(ctx context.Context, name string) (*Person, error) {
	var person Person
	err := s.persons.FindOne(ctx, bson.D{{Key: "name", Value: name}}).Decode(&person)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "PersonByName", "find one")
	}
	return &person, nil
}

func (s *MongoStore) PersonsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := s.persons.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "PersonsByIDs", "find")
	}

	var persons []*Person
	if err := cursor.All(ctx, &persons); err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "PersonsByIDs", "decode")
	}

	// Preserve the stored friends order.
	byID := make(map[primitive.ObjectID]*Person, len(persons))
	for _, p := range persons {
		byID[p.ID] = p
	}
	ordered := make([]*Person, 0, len(persons))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (s *MongoStore) InsertPerson(ctx context.Context, person *Person) error {
	if person.ID.IsZero() {
		person.ID = primitive.NewObjectID()
	}
	if _, err := s.persons.InsertOne(ctx, person); err != nil {
		return mongostore.MapError(err, "MongoStore", "InsertPerson", "insert")
	}
	return nil
}

func (s *MongoStore) SetPhone(ctx context.Context, name, phone string) (*Person, error) {
	var person Person
	err := s.persons.FindOneAndUpdate(ctx,
		bson.D{{Key: "name", Value: name}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "phone", Value: phone}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&person)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "SetPhone", "find and update")
	}
	return &person, nil
}

func (s *MongoStore) UserByID(ctx context.Context, id string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.WrapInvalid(err, "MongoStore", "UserByID", "parse object id")
	}

	var user User
	err = s.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&user)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "UserByID", "find one")
	}

	// Populate the friends in one batched fetch.
	user.Friends, err = s.PersonsByIDs(ctx, user.FriendIDs)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.users.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&user)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "UserByUsername", "find one")
	}
	return &user, nil
}

func (s *MongoStore) UsersWithFriend(ctx context.Context, personID primitive.ObjectID) ([]*User, error) {
	cursor, err := s.users.Find(ctx, bson.D{{Key: "friends", Value: bson.D{{Key: "$in", Value: []primitive.ObjectID{personID}}}}})
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "UsersWithFriend", "find")
	}

	var users []*User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "UsersWithFriend", "decode")
	}
	return users, nil
}

func (s *MongoStore) InsertUser(ctx context.Context, user *User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.FriendIDs == nil {
		user.FriendIDs = []primitive.ObjectID{}
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return mongostore.MapError(err, "MongoStore", "InsertUser", "insert")
	}
	return nil
}

func (s *MongoStore) SetFriends(ctx context.Context, userID primitive.ObjectID, friendIDs []primitive.ObjectID) error {
	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "friends", Value: friendIDs}}}},
	)
	if err != nil {
		return mongostore.MapError(err, "MongoStore", "SetFriends", "update one")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(errors.ErrNotFound, "MongoStore", "SetFriends", "user lookup")
	}
	return nil
}
