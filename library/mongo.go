package library

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
	booksCollection   = "books"
	authorsCollection = "authors"
	usersCollection   = "users"
)

// MongoStore implements Store on MongoDB collections.
type MongoStore struct {
	books   *mongo.Collection
	authors *mongo.Collection
	users   *mongo.Collection
}

// NewMongoStore creates a store over the given client's database.
func NewMongoStore(client *mongostore.Client) *MongoStore {
	return &MongoStore{
		books:   client.Collection(booksCollection),
		authors: client.Collection(authorsCollection),
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

	_, err = s.authors.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return mongostore.MapError(err, "MongoStore", "EnsureIndexes", "author name index")
	}

	return nil
}

func (s *MongoStore) BookCount(ctx context.Context) (int, error) {
	n, err := s.books.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, mongostore.MapError(err, "MongoStore", "BookCount", "count documents")
	}
	return int(n), nil
}

func (s *MongoStore) Books(ctx context.Context, filter BookFilter) ([]*Book, error) {
	query := bson.D{}
	if filter.AuthorID != nil {
		query = append(query, bson.E{Key: "author", Value: *filter.AuthorID})
	}
	if len(filter.Genres) > 0 {
		query = append(query, bson.E{Key: "genres", Value: bson.D{{Key: "$in", Value: filter.Genres}}})
	}

	cursor, err := s.books.Find(ctx, query)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "Books", "find")
	}

	var books []*Book
	if err := cursor.All(ctx, &books); err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "Books", "decode")
	}
	return books, nil
}

func (s *MongoStore) CountBooksByAuthor(ctx context.Context, authorID primitive.ObjectID) (int, error) {
	n, err := s.books.CountDocuments(ctx, bson.D{{Key: "author", Value: authorID}})
	if err != nil {
		return 0, mongostore.MapError(err, "MongoStore", "CountBooksByAuthor", "count documents")
	}
	return int(n), nil
}

func (s *MongoStore) InsertBook(ctx context.Context, book *Book) error {
	if book.ID.IsZero() {
		book.ID = primitive.NewObjectID()
	}
	if _, err := s.books.InsertOne(ctx, book); err != nil {
		return mongostore.MapError(err, "MongoStore", "InsertBook", "insert")
	}
	return nil
}

func (s *MongoStore) AuthorCount(ctx context.Context) (int, error) {
	n, err := s.authors.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, mongostore.MapError(err, "MongoStore", "AuthorCount", "count documents")
	}
	return int(n), nil
}

func (s *MongoStore) Authors(ctx context.Context) ([]*Author, error) {
	cursor, err := s.authors.Find(ctx, bson.D{})
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "Authors", "find")
	}

	var authors []*Author
	if err := cursor.All(ctx, &authors); err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "Authors", "decode")
	}
	return authors, nil
}

func (s *MongoStore) AuthorByID(ctx context.Context, id primitive.ObjectID) (*Author, error) {
	var author Author
	err := s.authors.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&author)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "AuthorByID", "find one")
	}
	return &author, nil
}

func (s *MongoStore) AuthorByName(ctx context.Context, name string) (*Author, error) {
	var author Author
	err := s.authors.FindOne(ctx, bson.D{{Key: "name", Value: name}}).Decode(&author)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "AuthorByName", "find one")
	}
	return &author, nil
}

func (s *MongoStore) InsertAuthor(ctx context.Context, author *Author) error {
	if author.ID.IsZero() {
		author.ID = primitive.NewObjectID()
	}
	if _, err := s.authors.InsertOne(ctx, author); err != nil {
		return mongostore.MapError(err, "MongoStore", "InsertAuthor", "insert")
	}
	return nil
}

func (s *MongoStore) SetAuthorBorn(ctx context.Context, name string, born int) (*Author, error) {
	var author Author
	err := s.authors.FindOneAndUpdate(ctx,
		bson.D{{Key: "name", Value: name}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "born", Value: born}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&author)
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "SetAuthorBorn", "find and update")
	}
	return &author, nil
}

func (s *MongoStore) Users(ctx context.Context) ([]*User, error) {
	cursor, err := s.users.Find(ctx, bson.D{})
	if err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "Users", "find")
	}

	var users []*User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, mongostore.MapError(err, "MongoStore", "Users", "decode")
	}
	return users, nil
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

func (s *MongoStore) InsertUser(ctx context.Context, user *User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return mongostore.MapError(err, "MongoStore", "InsertUser", "insert")
	}
	return nil
}

func (s *MongoStore) SetFavoriteGenre(ctx context.Context, userID primitive.ObjectID, genre string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "favoriteGenre", Value: genre}}}},
	)
	if err != nil {
		return mongostore.MapError(err, "MongoStore", "SetFavoriteGenre", "update one")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(errors.ErrNotFound, "MongoStore", "SetFavoriteGenre", "user lookup")
	}
	return nil
}
