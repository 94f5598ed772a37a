package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lewisdbentley/graphbook/auth"
	"github.com/lewisdbentley/graphbook/gateway/graphql"
	"github.com/lewisdbentley/graphbook/token"
)

func newTestService(t *testing.T) (*Resolver, *MemoryStore, *graphql.Executor, *auth.Builder[User]) {
	t.Helper()

	store := NewMemoryStore()
	tokens, err := token.NewService([]byte("test-secret"))
	require.NoError(t, err)

	resolver := NewResolver(store, tokens, nil)
	builder := auth.NewBuilder[User](tokens, resolver, nil)
	return resolver, store, graphql.NewExecutor(resolver), builder
}

func seedUser(t *testing.T, store *MemoryStore, username, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{Username: username, PasswordHash: hash}
	require.NoError(t, store.InsertUser(context.Background(), user))
	return user
}

func TestLoginSignupAddBookScenario(t *testing.T) {
	_, _, exec, builder := newTestService(t)
	ctx := context.Background()

	// Create the account; no auth required.
	resp := exec.Execute(ctx, graphql.Params{
		Query: `mutation {
			createUser(username: "ada", favoriteGenre: "cs", password: "correctpw") { username }
		}`,
	})
	require.False(t, resp.HasErrors(), "createUser failed: %v", resp.Errors)

	// Log in and capture the token.
	resp = exec.Execute(ctx, graphql.Params{
		Query: `mutation { login(username: "ada", password: "correctpw") { value } }`,
	})
	require.False(t, resp.HasErrors(), "login failed: %v", resp.Errors)
	tokenValue := resp.Data["login"].(map[string]any)["value"].(string)
	require.NotEmpty(t, tokenValue)

	// Add a book as the authenticated user.
	authCtx := builder.Context(ctx, "Bearer "+tokenValue)
	resp = exec.Execute(authCtx, graphql.Params{
		Query: `mutation {
			addBook(title: "X", published: 2020, author: "Lovelace", genres: ["cs"]) {
				title
				author { name bookCount }
			}
		}`,
	})
	require.False(t, resp.HasErrors(), "addBook failed: %v", resp.Errors)
	assert.Equal(t, map[string]any{
		"addBook": map[string]any{
			"title": "X",
			"author": map[string]any{
				"name":      "Lovelace",
				"bookCount": 1,
			},
		},
	}, resp.Data)
}

func TestAddBookRequiresAuth(t *testing.T) {
	_, store, exec, _ := newTestService(t)
	ctx := context.Background()

	resp := exec.Execute(ctx, graphql.Params{
		Query: `mutation { addBook(title: "X", published: 2020, author: "Lovelace") { title } }`,
	})

	require.True(t, resp.HasErrors())
	assert.Equal(t, "not authenticated", resp.Errors[0].Message)
	assert.Equal(t, "UNAUTHENTICATED", resp.Errors[0].Extensions["code"])

	// Nothing was persisted.
	books, err := store.Books(ctx, BookFilter{})
	require.NoError(t, err)
	assert.Empty(t, books)
	authors, err := store.Authors(ctx)
	require.NoError(t, err)
	assert.Empty(t, authors)
}

func TestBookCountTracksLiveCount(t *testing.T) {
	resolver, store, exec, _ := newTestService(t)
	ctx := auth.WithCurrentUser(context.Background(), seedUser(t, store, "ada", "pw"))

	for _, title := range []string{"First", "Second", "Third"} {
		_, err := resolver.ResolveMutation(ctx, "addBook", map[string]any{
			"title":     title,
			"published": 2020,
			"author":    "Lovelace",
		})
		require.NoError(t, err)
	}

	resp := exec.Execute(ctx, graphql.Params{
		Query: `{ allAuthors { name bookCount } bookCount authorCount }`,
	})
	require.False(t, resp.HasErrors())
	assert.Equal(t, map[string]any{
		"allAuthors":  []any{map[string]any{"name": "Lovelace", "bookCount": 3}},
		"bookCount":   3,
		"authorCount": 1,
	}, resp.Data)
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	_, store, exec, _ := newTestService(t)
	seedUser(t, store, "ada", "correctpw")

	queries := map[string]string{
		"wrong password":   `mutation { login(username: "ada", password: "nope") { value } }`,
		"unknown username": `mutation { login(username: "ghost", password: "nope") { value } }`,
	}

	var messages []string
	for name, query := range queries {
		t.Run(name, func(t *testing.T) {
			resp := exec.Execute(context.Background(), graphql.Params{Query: query})
			require.True(t, resp.HasErrors())
			assert.Equal(t, "wrong credentials", resp.Errors[0].Message)
			assert.Equal(t, "BAD_USER_INPUT", resp.Errors[0].Extensions["code"])
			messages = append(messages, resp.Errors[0].Message)
		})
	}
	require.Len(t, messages, 2)
	assert.Equal(t, messages[0], messages[1])
}

func TestAllBooksFilters(t *testing.T) {
	resolver, store, _, _ := newTestService(t)
	ctx := auth.WithCurrentUser(context.Background(), seedUser(t, store, "ada", "pw"))

	books := []map[string]any{
		{"title": "Refactoring", "published": 1999, "author": "Fowler", "genres": []any{"patterns", "design"}},
		{"title": "NoSQL Distilled", "published": 2012, "author": "Fowler", "genres": []any{"data"}},
		{"title": "Clean Code", "published": 2008, "author": "Martin", "genres": []any{"design"}},
	}
	for _, args := range books {
		_, err := resolver.ResolveMutation(ctx, "addBook", args)
		require.NoError(t, err)
	}

	titles := func(val any, err error) []string {
		require.NoError(t, err)
		var out []string
		for _, b := range val.([]*Book) {
			out = append(out, b.Title)
		}
		return out
	}

	t.Run("no filter returns everything", func(t *testing.T) {
		got := titles(resolver.ResolveQuery(ctx, "allBooks", map[string]any{}))
		assert.ElementsMatch(t, []string{"Refactoring", "NoSQL Distilled", "Clean Code"}, got)
	})

	t.Run("author filter", func(t *testing.T) {
		got := titles(resolver.ResolveQuery(ctx, "allBooks", map[string]any{"author": "Fowler"}))
		assert.ElementsMatch(t, []string{"Refactoring", "NoSQL Distilled"}, got)
	})

	t.Run("genre filter matches any requested genre", func(t *testing.T) {
		got := titles(resolver.ResolveQuery(ctx, "allBooks", map[string]any{"genres": []any{"design"}}))
		assert.ElementsMatch(t, []string{"Refactoring", "Clean Code"}, got)
	})

	t.Run("author and genre intersect", func(t *testing.T) {
		got := titles(resolver.ResolveQuery(ctx, "allBooks", map[string]any{
			"author": "Fowler",
			"genres": []any{"design"},
		}))
		assert.Equal(t, []string{"Refactoring"}, got)
	})

	t.Run("unknown author yields empty list", func(t *testing.T) {
		val, err := resolver.ResolveQuery(ctx, "allBooks", map[string]any{"author": "Nobody"})
		require.NoError(t, err)
		assert.Empty(t, val)
	})
}

func TestEditAuthor(t *testing.T) {
	resolver, store, _, _ := newTestService(t)
	ctx := auth.WithCurrentUser(context.Background(), seedUser(t, store, "ada", "pw"))

	require.NoError(t, store.InsertAuthor(ctx, &Author{Name: "Fowler"}))

	val, err := resolver.ResolveMutation(ctx, "editAuthor", map[string]any{
		"name":      "Fowler",
		"setBornTo": 1963,
	})
	require.NoError(t, err)
	author := val.(*Author)
	require.NotNil(t, author.Born)
	assert.Equal(t, 1963, *author.Born)

	t.Run("missing author is invalid input", func(t *testing.T) {
		_, err := resolver.ResolveMutation(ctx, "editAuthor", map[string]any{
			"name":      "Nobody",
			"setBornTo": 1900,
		})
		require.Error(t, err)
	})

	t.Run("requires auth", func(t *testing.T) {
		_, err := resolver.ResolveMutation(context.Background(), "editAuthor", map[string]any{
			"name":      "Fowler",
			"setBornTo": 1963,
		})
		require.Error(t, err)
	})
}

func TestMeQuery(t *testing.T) {
	_, store, exec, _ := newTestService(t)
	user := seedUser(t, store, "ada", "pw")

	t.Run("anonymous yields null not error", func(t *testing.T) {
		resp := exec.Execute(context.Background(), graphql.Params{Query: `{ me { username } }`})
		require.False(t, resp.HasErrors())
		assert.Equal(t, map[string]any{"me": nil}, resp.Data)
	})

	t.Run("authenticated sees own record", func(t *testing.T) {
		ctx := auth.WithCurrentUser(context.Background(), user)
		resp := exec.Execute(ctx, graphql.Params{Query: `{ me { username } }`})
		require.False(t, resp.HasErrors())
		assert.Equal(t, map[string]any{
			"me": map[string]any{"username": "ada"},
		}, resp.Data)
	})
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	resolver, store, _, _ := newTestService(t)
	seedUser(t, store, "ada", "pw")

	_, err := resolver.ResolveMutation(context.Background(), "createUser", map[string]any{
		"username":      "ada",
		"favoriteGenre": "cs",
		"password":      "pw",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username already taken")
}

func TestAddFavoriteGenre(t *testing.T) {
	resolver, store, _, _ := newTestService(t)
	user := seedUser(t, store, "ada", "pw")
	ctx := auth.WithCurrentUser(context.Background(), user)

	val, err := resolver.ResolveMutation(ctx, "addFavoriteGenre", map[string]any{
		"favoriteGenre": "sci-fi",
	})
	require.NoError(t, err)
	assert.Equal(t, "sci-fi", val.(*User).FavoriteGenre)

	stored, err := store.UserByID(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "sci-fi", stored.FavoriteGenre)
}
