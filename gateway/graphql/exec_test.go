package graphql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/lewisdbentley/graphbook/errors"
)

const testSchema = `
type Query {
  hero(id: ID!): Character
  heroes: [Character!]!
  secret: String!
}

type Mutation {
  rename(id: ID!, name: String!): Character
}

type Subscription {
  heroAdded: Character!
}

type Character {
  id: ID!
  name: String!
  friends: [Character!]!
}
`

type character struct {
	ID      string
	Name    string
	Friends []*character
}

// fakeResolver serves a tiny in-memory cast of characters.
type fakeResolver struct {
	schema *ast.Schema
	heroes map[string]*character
	events chan any
}

func newFakeResolver() *fakeResolver {
	luke := &character{ID: "1", Name: "Luke"}
	leia := &character{ID: "2", Name: "Leia", Friends: []*character{luke}}
	luke.Friends = []*character{leia}
	return &fakeResolver{
		schema: gqlparser.MustLoadSchema(&ast.Source{Name: "test.graphql", Input: testSchema}),
		heroes: map[string]*character{"1": luke, "2": leia},
		events: make(chan any, 4),
	}
}

func (r *fakeResolver) Schema() *ast.Schema { return r.schema }

func (r *fakeResolver) ResolveQuery(_ context.Context, field string, args map[string]any) (any, error) {
	switch field {
	case "hero":
		return r.heroes[StringArg(args, "id")], nil
	case "heroes":
		out := make([]*character, 0, len(r.heroes))
		for _, id := range []string{"1", "2"} {
			out = append(out, r.heroes[id])
		}
		return out, nil
	case "secret":
		return nil, errors.ErrNotAuthenticated
	default:
		return nil, fmt.Errorf("unknown query field %s", field)
	}
}

func (r *fakeResolver) ResolveMutation(_ context.Context, field string, args map[string]any) (any, error) {
	if field != "rename" {
		return nil, fmt.Errorf("unknown mutation field %s", field)
	}
	id := StringArg(args, "id")
	name := StringArg(args, "name")
	hero, ok := r.heroes[id]
	if !ok {
		return nil, errors.WrapInvalidArgs(errors.ErrNotFound, "fake", "rename",
			"hero not found", map[string]any{"id": id})
	}
	hero.Name = name
	return hero, nil
}

func (r *fakeResolver) ResolveField(_ context.Context, typeName string, obj any, field string, _ map[string]any) (any, error) {
	c, ok := obj.(*character)
	if !ok || typeName != "Character" {
		return nil, fmt.Errorf("unexpected object for %s.%s", typeName, field)
	}
	switch field {
	case "id":
		return c.ID, nil
	case "name":
		return c.Name, nil
	case "friends":
		return c.Friends, nil
	default:
		return nil, fmt.Errorf("unknown field %s", field)
	}
}

func (r *fakeResolver) ResolveSubscription(ctx context.Context, field string, _ map[string]any) (<-chan any, error) {
	if field != "heroAdded" {
		return nil, fmt.Errorf("unknown subscription field %s", field)
	}
	out := make(chan any)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-r.events:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func TestExecuteQuery(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	resp := exec.Execute(context.Background(), Params{
		Query: `query Hero($id: ID!) { hero(id: $id) { id name friends { name } } }`,
		Variables: map[string]any{
			"id": "2",
		},
	})

	require.False(t, resp.HasErrors(), "unexpected errors: %v", resp.Errors)
	assert.Equal(t, "Hero", resp.Operation())
	assert.Equal(t, map[string]any{
		"hero": map[string]any{
			"id":   "2",
			"name": "Leia",
			"friends": []any{
				map[string]any{"name": "Luke"},
			},
		},
	}, resp.Data)
}

func TestExecuteQueryAlias(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	resp := exec.Execute(context.Background(), Params{
		Query: `{ first: hero(id: "1") { name } second: hero(id: "2") { name } }`,
	})

	require.False(t, resp.HasErrors())
	assert.Equal(t, map[string]any{
		"first":  map[string]any{"name": "Luke"},
		"second": map[string]any{"name": "Leia"},
	}, resp.Data)
}

func TestExecuteNullableMiss(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	resp := exec.Execute(context.Background(), Params{
		Query: `{ hero(id: "missing") { name } }`,
	})

	require.False(t, resp.HasErrors())
	assert.Equal(t, map[string]any{"hero": nil}, resp.Data)
}

func TestExecuteListOfObjects(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	resp := exec.Execute(context.Background(), Params{
		Query: `{ heroes { name __typename } }`,
	})

	require.False(t, resp.HasErrors())
	assert.Equal(t, map[string]any{
		"heroes": []any{
			map[string]any{"name": "Luke", "__typename": "Character"},
			map[string]any{"name": "Leia", "__typename": "Character"},
		},
	}, resp.Data)
}

func TestExecuteMutation(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	resp := exec.Execute(context.Background(), Params{
		Query: `mutation { rename(id: "1", name: "Anakin") { id name } }`,
	})

	require.False(t, resp.HasErrors())
	assert.Equal(t, map[string]any{
		"rename": map[string]any{"id": "1", "name": "Anakin"},
	}, resp.Data)
}

func TestExecuteValidationError(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	tests := []struct {
		name  string
		query string
	}{
		{"unknown field", `{ nonsense }`},
		{"missing required argument", `{ hero { name } }`},
		{"syntax error", `{ hero(id: "1") { name `},
		{"wrong argument type", `{ hero(id: ["1"]) { name } }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := exec.Execute(context.Background(), Params{Query: tt.query})
			assert.True(t, resp.HasErrors())
			assert.Nil(t, resp.Data)
		})
	}
}

func TestExecuteOperationSelection(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	query := `
	query A { hero(id: "1") { name } }
	query B { heroes { id } }
	`

	resp := exec.Execute(context.Background(), Params{Query: query, OperationName: "B"})
	require.False(t, resp.HasErrors())
	assert.Equal(t, "B", resp.Operation())
	assert.Contains(t, resp.Data, "heroes")

	resp = exec.Execute(context.Background(), Params{Query: query, OperationName: "C"})
	assert.True(t, resp.HasErrors())
}

func TestExecuteAuthErrorClassification(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	resp := exec.Execute(context.Background(), Params{Query: `{ secret }`})

	require.True(t, resp.HasErrors())
	assert.Equal(t, "not authenticated", resp.Errors[0].Message)
	assert.Equal(t, "UNAUTHENTICATED", resp.Errors[0].Extensions["code"])
	// secret is non-null, so the whole data object is null
	assert.Nil(t, resp.Data)
}

func TestExecuteInvalidArgsExtension(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	resp := exec.Execute(context.Background(), Params{
		Query: `mutation { rename(id: "missing", name: "X") { name } }`,
	})

	require.True(t, resp.HasErrors())
	assert.Equal(t, "BAD_USER_INPUT", resp.Errors[0].Extensions["code"])
	assert.Equal(t, map[string]any{"id": "missing"}, resp.Errors[0].Extensions["invalidArgs"])
}

func TestExecuteRejectsSubscription(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	resp := exec.Execute(context.Background(), Params{
		Query: `subscription { heroAdded { name } }`,
	})

	require.True(t, resp.HasErrors())
	assert.Contains(t, resp.Errors[0].Message, "websocket")
}

func TestSubscribe(t *testing.T) {
	resolver := newFakeResolver()
	exec := NewExecutor(resolver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := exec.Subscribe(ctx, Params{
		Query: `subscription { heroAdded { id name } }`,
	})
	require.NoError(t, err)

	resolver.events <- &character{ID: "3", Name: "Han"}

	select {
	case resp := <-stream:
		require.False(t, resp.HasErrors())
		assert.Equal(t, map[string]any{
			"heroAdded": map[string]any{"id": "3", "name": "Han"},
		}, resp.Data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscription event")
	}

	// Cancelling the context ends the stream.
	cancel()
	select {
	case _, open := <-stream:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("stream did not close after cancel")
	}
}

func TestSubscribeRequiresSubscriptionOperation(t *testing.T) {
	exec := NewExecutor(newFakeResolver())

	_, err := exec.Subscribe(context.Background(), Params{
		Query: `{ heroes { id } }`,
	})
	assert.Error(t, err)
}
