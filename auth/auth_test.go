package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisdbentley/graphbook/errors"
	"github.com/lewisdbentley/graphbook/token"
)

type testUser struct {
	ID       string
	Username string
}

func testLoader(users map[string]*testUser) LoaderFunc[testUser] {
	return func(_ context.Context, userID string) (*testUser, error) {
		if u, ok := users[userID]; ok {
			return u, nil
		}
		return nil, errors.WrapInvalid(errors.ErrNotFound, "testLoader", "UserForToken", "lookup")
	}
}

func newTestBuilder(t *testing.T, users map[string]*testUser) (*Builder[testUser], *token.Service) {
	t.Helper()
	tokens, err := token.NewService([]byte("test-secret"))
	require.NoError(t, err)
	return NewBuilder(tokens, testLoader(users), nil), tokens
}

func TestAnonymousContexts(t *testing.T) {
	builder, tokens := newTestBuilder(t, map[string]*testUser{})

	valid, err := tokens.Issue("ada", "u1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"bearer with garbage token", "Bearer not-a-token"},
		{"bearer with no token", "Bearer "},
		{"valid token but unknown user", "Bearer " + valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := builder.Context(context.Background(), tt.header)
			_, ok := CurrentUser[testUser](ctx)
			assert.False(t, ok, "expected anonymous context")
		})
	}
}

func TestResolvesCurrentUser(t *testing.T) {
	ada := &testUser{ID: "u1", Username: "ada"}
	builder, tokens := newTestBuilder(t, map[string]*testUser{"u1": ada})

	tok, err := tokens.Issue("ada", "u1")
	require.NoError(t, err)

	ctx := builder.Context(context.Background(), "Bearer "+tok)
	user, ok := CurrentUser[testUser](ctx)
	require.True(t, ok)
	assert.Equal(t, ada, user)
}

func TestSchemePrefixIsCaseInsensitive(t *testing.T) {
	ada := &testUser{ID: "u1", Username: "ada"}
	builder, tokens := newTestBuilder(t, map[string]*testUser{"u1": ada})

	tok, err := tokens.Issue("ada", "u1")
	require.NoError(t, err)

	for _, scheme := range []string{"bearer ", "Bearer ", "BEARER ", "bEaReR "} {
		ctx := builder.Context(context.Background(), scheme+tok)
		_, ok := CurrentUser[testUser](ctx)
		assert.True(t, ok, "scheme %q should resolve", scheme)
	}
}

func TestTokenSignedWithOtherKeyIsAnonymous(t *testing.T) {
	ada := &testUser{ID: "u1", Username: "ada"}
	builder, _ := newTestBuilder(t, map[string]*testUser{"u1": ada})

	other, err := token.NewService([]byte("other-secret"))
	require.NoError(t, err)
	tok, err := other.Issue("ada", "u1")
	require.NoError(t, err)

	ctx := builder.Context(context.Background(), "Bearer "+tok)
	_, ok := CurrentUser[testUser](ctx)
	assert.False(t, ok)
}

func TestWithCurrentUserRoundTrip(t *testing.T) {
	ada := &testUser{ID: "u1", Username: "ada"}
	ctx := WithCurrentUser(context.Background(), ada)

	got, ok := CurrentUser[testUser](ctx)
	require.True(t, ok)
	assert.Same(t, ada, got)

	// A nil user still reads as anonymous.
	ctx = WithCurrentUser[testUser](context.Background(), nil)
	_, ok = CurrentUser[testUser](ctx)
	assert.False(t, ok)
}
