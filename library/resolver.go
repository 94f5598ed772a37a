package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/crypto/bcrypt"

	"github.com/lewisdbentley/graphbook/auth"
	"github.com/lewisdbentley/graphbook/errors"
	"github.com/lewisdbentley/graphbook/gateway/graphql"
	"github.com/lewisdbentley/graphbook/token"
)

// Resolver maps the library schema onto the store. One method arm per
// operation; unknown fields cannot occur because requests are validated
// against the schema first.
type Resolver struct {
	store  Store
	tokens *token.Service
	logger *slog.Logger
}

// NewResolver creates the library resolver.
func NewResolver(store Store, tokens *token.Service, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		tokens: tokens,
		logger: logger.With("component", "library-resolver"),
	}
}

// Schema implements graphql.Resolver.
func (r *Resolver) Schema() *ast.Schema {
	return Schema()
}

// ResolveQuery implements graphql.Resolver.
func (r *Resolver) ResolveQuery(ctx context.Context, field string, args map[string]any) (any, error) {
	switch field {
	case "bookCount":
		return r.store.BookCount(ctx)
	case "authorCount":
		return r.store.AuthorCount(ctx)
	case "allBooks":
		return r.allBooks(ctx, args)
	case "allAuthors":
		return r.store.Authors(ctx)
	case "allUsers":
		return r.store.Users(ctx)
	case "me":
		user, _ := auth.CurrentUser[User](ctx)
		return user, nil
	default:
		return nil, fmt.Errorf("unknown query field %s", field)
	}
}

// ResolveMutation implements graphql.Resolver.
func (r *Resolver) ResolveMutation(ctx context.Context, field string, args map[string]any) (any, error) {
	switch field {
	case "addBook":
		return r.addBook(ctx, args)
	case "editAuthor":
		return r.editAuthor(ctx, args)
	case "createUser":
		return r.createUser(ctx, args)
	case "login":
		return r.login(ctx, args)
	case "addFavoriteGenre":
		return r.addFavoriteGenre(ctx, args)
	default:
		return nil, fmt.Errorf("unknown mutation field %s", field)
	}
}

// ResolveField implements graphql.Resolver.
func (r *Resolver) ResolveField(ctx context.Context, typeName string, obj any, field string, _ map[string]any) (any, error) {
	switch typeName {
	case "Book":
		return r.bookField(ctx, obj, field)
	case "Author":
		return r.authorField(ctx, obj, field)
	case "User":
		return userField(obj, field)
	case "Token":
		if t, ok := obj.(*Token); ok && field == "value" {
			return t.Value, nil
		}
	}
	return nil, fmt.Errorf("unknown field %s.%s", typeName, field)
}

func (r *Resolver) bookField(ctx context.Context, obj any, field string) (any, error) {
	book, ok := obj.(*Book)
	if !ok {
		return nil, fmt.Errorf("expected Book, got %T", obj)
	}
	switch field {
	case "id":
		return book.ID.Hex(), nil
	case "title":
		return book.Title, nil
	case "published":
		return book.Published, nil
	case "genres":
		return book.Genres, nil
	case "author":
		// Secondary lookup by the stored reference; the caller always
		// gets the full record, never a bare id.
		return r.store.AuthorByID(ctx, book.AuthorID)
	default:
		return nil, fmt.Errorf("unknown field Book.%s", field)
	}
}

func (r *Resolver) authorField(ctx context.Context, obj any, field string) (any, error) {
	author, ok := obj.(*Author)
	if !ok {
		return nil, fmt.Errorf("expected Author, got %T", obj)
	}
	switch field {
	case "id":
		return author.ID.Hex(), nil
	case "name":
		return author.Name, nil
	case "born":
		return author.Born, nil
	case "bookCount":
		// Derived at read time so it always equals the live count.
		return r.store.CountBooksByAuthor(ctx, author.ID)
	default:
		return nil, fmt.Errorf("unknown field Author.%s", field)
	}
}

func userField(obj any, field string) (any, error) {
	user, ok := obj.(*User)
	if !ok {
		return nil, fmt.Errorf("expected User, got %T", obj)
	}
	switch field {
	case "id":
		return user.ID.Hex(), nil
	case "username":
		return user.Username, nil
	case "favoriteGenre":
		return user.FavoriteGenre, nil
	default:
		return nil, fmt.Errorf("unknown field User.%s", field)
	}
}

func (r *Resolver) allBooks(ctx context.Context, args map[string]any) (any, error) {
	filter := BookFilter{Genres: graphql.StringListArg(args, "genres")}

	if name, ok := graphql.OptionalStringArg(args, "author"); ok {
		author, err := r.store.AuthorByName(ctx, name)
		if err != nil {
			if errors.IsNotFound(err) {
				// No such author means no books by that author.
				return []*Book{}, nil
			}
			return nil, err
		}
		filter.AuthorID = &author.ID
	}

	return r.store.Books(ctx, filter)
}

func (r *Resolver) addBook(ctx context.Context, args map[string]any) (any, error) {
	user, ok := auth.CurrentUser[User](ctx)
	if !ok {
		return nil, errors.WrapAuth(errors.ErrNotAuthenticated, "Resolver", "addBook",
			"authentication required")
	}

	authorName := graphql.StringArg(args, "author")
	author, err := r.store.AuthorByName(ctx, authorName)
	if errors.IsNotFound(err) {
		author = &Author{Name: authorName}
		if err := author.Validate(); err != nil {
			return nil, err
		}
		if err := r.store.InsertAuthor(ctx, author); err != nil {
			return nil, err
		}
		r.logger.Info("author created", "name", author.Name, "user", user.Username)
	} else if err != nil {
		return nil, err
	}

	book := &Book{
		Title:     graphql.StringArg(args, "title"),
		Published: graphql.IntArg(args, "published"),
		AuthorID:  author.ID,
		Genres:    graphql.StringListArg(args, "genres"),
	}
	if err := book.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.InsertBook(ctx, book); err != nil {
		return nil, err
	}

	r.logger.Info("book added", "title", book.Title, "author", author.Name)
	return book, nil
}

func (r *Resolver) editAuthor(ctx context.Context, args map[string]any) (any, error) {
	if _, ok := auth.CurrentUser[User](ctx); !ok {
		return nil, errors.WrapAuth(errors.ErrNotAuthenticated, "Resolver", "editAuthor",
			"authentication required")
	}

	name := graphql.StringArg(args, "name")
	author, err := r.store.SetAuthorBorn(ctx, name, graphql.IntArg(args, "setBornTo"))
	if errors.IsNotFound(err) {
		return nil, errors.WrapInvalidArgs(errors.ErrNotFound, "Resolver", "editAuthor",
			"author not found", map[string]any{"name": name})
	}
	return author, err
}

func (r *Resolver) createUser(ctx context.Context, args map[string]any) (any, error) {
	password := graphql.StringArg(args, "password")
	if password == "" {
		return nil, errors.WrapInvalidArgs(errors.ErrInvalidConfig, "Resolver", "createUser",
			"password is required", map[string]any{"username": graphql.StringArg(args, "username")})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.WrapFatal(err, "Resolver", "createUser", "hash password")
	}

	user := &User{
		Username:      graphql.StringArg(args, "username"),
		FavoriteGenre: graphql.StringArg(args, "favoriteGenre"),
		PasswordHash:  hash,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, errors.ErrDuplicateKey) {
			return nil, errors.WrapInvalidArgs(errors.ErrDuplicateKey, "Resolver", "createUser",
				"username already taken", map[string]any{"username": user.Username})
		}
		return nil, err
	}

	r.logger.Info("user created", "username", user.Username)
	return user, nil
}

func (r *Resolver) login(ctx context.Context, args map[string]any) (any, error) {
	username := graphql.StringArg(args, "username")

	// A missing user and a wrong password fail identically so callers
	// cannot probe for account existence.
	user, err := r.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.WrapInvalid(errors.ErrWrongCredentials, "Resolver", "login", "verify credentials")
		}
		return nil, err
	}

	password := graphql.StringArg(args, "password")
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, errors.WrapInvalid(errors.ErrWrongCredentials, "Resolver", "login", "verify credentials")
	}

	value, err := r.tokens.Issue(user.Username, user.ID.Hex())
	if err != nil {
		return nil, err
	}

	r.logger.Info("user logged in", "username", user.Username)
	return &Token{Value: value}, nil
}

func (r *Resolver) addFavoriteGenre(ctx context.Context, args map[string]any) (any, error) {
	user, ok := auth.CurrentUser[User](ctx)
	if !ok {
		return nil, errors.WrapAuth(errors.ErrNotAuthenticated, "Resolver", "addFavoriteGenre",
			"authentication required")
	}

	genre := graphql.StringArg(args, "favoriteGenre")
	if err := r.store.SetFavoriteGenre(ctx, user.ID, genre); err != nil {
		return nil, err
	}

	updated := *user
	updated.FavoriteGenre = genre
	return &updated, nil
}

// UserForToken loads the user referenced by a verified token. It is the
// auth.UserLoader for this service.
func (r *Resolver) UserForToken(ctx context.Context, userID string) (*User, error) {
	return r.store.UserByID(ctx, userID)
}
