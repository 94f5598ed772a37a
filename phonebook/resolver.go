package phonebook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vektah/gqlparser/v2/ast"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/lewisdbentley/graphbook/auth"
	"github.com/lewisdbentley/graphbook/errors"
	"github.com/lewisdbentley/graphbook/eventbus"
	"github.com/lewisdbentley/graphbook/gateway/graphql"
	"github.com/lewisdbentley/graphbook/token"
)

// Resolver maps the phonebook schema onto the store and the event bus.
type Resolver struct {
	store  Store
	tokens *token.Service
	bus    *eventbus.Bus
	logger *slog.Logger
}

// NewResolver creates the phonebook resolver.
func NewResolver(store Store, tokens *token.Service, bus *eventbus.Bus, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		tokens: tokens,
		bus:    bus,
		logger: logger.With("component", "phonebook-resolver"),
	}
}

// Schema implements graphql.Resolver.
func (r *Resolver) Schema() *ast.Schema {
	return Schema()
}

// ResolveQuery implements graphql.Resolver.
func (r *Resolver) ResolveQuery(ctx context.Context, field string, args map[string]any) (any, error) {
	switch field {
	case "personCount":
		return r.store.PersonCount(ctx)
	case "allPersons":
		return r.store.Persons(ctx, phoneFilterArg(args))
	case "findPerson":
		person, err := r.store.PersonByName(ctx, graphql.StringArg(args, "name"))
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return person, err
	case "findUser":
		user, err := r.store.UserByUsername(ctx, graphql.StringArg(args, "username"))
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return user, err
	case "me":
		user, _ := auth.CurrentUser[User](ctx)
		return user, nil
	default:
		return nil, fmt.Errorf("unknown query field %s", field)
	}
}

// phoneFilterArg maps the YesNo argument onto the tri-state filter:
// YES means the phone field is present, NO absent, and an omitted
// argument applies no filter.
func phoneFilterArg(args map[string]any) PhoneFilter {
	val, ok := graphql.OptionalStringArg(args, "phone")
	if !ok {
		return PhoneAny
	}
	if val == "YES" {
		return PhoneSet
	}
	return PhoneUnset
}

// ResolveMutation implements graphql.Resolver.
func (r *Resolver) ResolveMutation(ctx context.Context, field string, args map[string]any) (any, error) {
	switch field {
	case "addPerson":
		return r.addPerson(ctx, args)
	case "editNumber":
		return r.editNumber(ctx, args)
	case "createUser":
		return r.createUser(ctx, args)
	case "login":
		return r.login(ctx, args)
	case "addAsFriend":
		return r.addAsFriend(ctx, args)
	default:
		return nil, fmt.Errorf("unknown mutation field %s", field)
	}
}

// ResolveField implements graphql.Resolver.
func (r *Resolver) ResolveField(ctx context.Context, typeName string, obj any, field string, _ map[string]any) (any, error) {
	switch typeName {
	case "Person":
		return r.personField(ctx, obj, field)
	case "Address":
		return addressField(obj, field)
	case "User":
		return r.userField(ctx, obj, field)
	case "Token":
		if t, ok := obj.(*Token); ok && field == "value" {
			return t.Value, nil
		}
	}
	return nil, fmt.Errorf("unknown field %s.%s", typeName, field)
}

func (r *Resolver) personField(ctx context.Context, obj any, field string) (any, error) {
	person, ok := obj.(*Person)
	if !ok {
		return nil, fmt.Errorf("expected Person, got %T", obj)
	}
	switch field {
	case "id":
		return person.ID.Hex(), nil
	case "name":
		return person.Name, nil
	case "phone":
		if person.Phone == nil {
			return nil, nil
		}
		return *person.Phone, nil
	case "address":
		// Address is stored flat on the person and grouped here.
		return person, nil
	case "friendOf":
		return r.store.UsersWithFriend(ctx, person.ID)
	default:
		return nil, fmt.Errorf("unknown field Person.%s", field)
	}
}

func addressField(obj any, field string) (any, error) {
	person, ok := obj.(*Person)
	if !ok {
		return nil, fmt.Errorf("expected Person, got %T", obj)
	}
	switch field {
	case "street":
		return person.Street, nil
	case "city":
		return person.City, nil
	default:
		return nil, fmt.Errorf("unknown field Address.%s", field)
	}
}

func (r *Resolver) userField(ctx context.Context, obj any, field string) (any, error) {
	user, ok := obj.(*User)
	if !ok {
		return nil, fmt.Errorf("expected User, got %T", obj)
	}
	switch field {
	case "id":
		return user.ID.Hex(), nil
	case "username":
		return user.Username, nil
	case "friends":
		if user.Friends != nil {
			return user.Friends, nil
		}
		return r.store.PersonsByIDs(ctx, user.FriendIDs)
	default:
		return nil, fmt.Errorf("unknown field User.%s", field)
	}
}

// addPerson creates the person, appends it to the caller's friends and
// publishes the event. The person insert and the friends update are two
// separate writes; a failure between them leaves the person persisted
// without the friend entry, and no event is published.
func (r *Resolver) addPerson(ctx context.Context, args map[string]any) (any, error) {
	user, ok := auth.CurrentUser[User](ctx)
	if !ok {
		return nil, errors.WrapAuth(errors.ErrNotAuthenticated, "Resolver", "addPerson",
			"authentication required")
	}

	person := &Person{
		Name:   graphql.StringArg(args, "name"),
		Street: graphql.StringArg(args, "street"),
		City:   graphql.StringArg(args, "city"),
	}
	if phone, ok := graphql.OptionalStringArg(args, "phone"); ok {
		person.Phone = &phone
	}
	if err := person.Validate(); err != nil {
		return nil, err
	}

	if err := r.store.InsertPerson(ctx, person); err != nil {
		return nil, err
	}
	if err := r.store.SetFriends(ctx, user.ID, append(user.FriendIDs, person.ID)); err != nil {
		return nil, err
	}

	delivered := r.bus.Publish(TopicPersonAdded, person)
	r.logger.Info("person added", "name", person.Name, "user", user.Username,
		"subscribers", delivered)
	return person, nil
}

// editNumber deliberately performs no auth check, matching the rest of
// the mutation surface's asymmetry.
func (r *Resolver) editNumber(ctx context.Context, args map[string]any) (any, error) {
	name := graphql.StringArg(args, "name")
	person, err := r.store.SetPhone(ctx, name, graphql.StringArg(args, "phone"))
	if errors.IsNotFound(err) {
		return nil, errors.WrapInvalidArgs(errors.ErrNotFound, "Resolver", "editNumber",
			"person not found", map[string]any{"name": name})
	}
	return person, err
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
		Username:     graphql.StringArg(args, "username"),
		PasswordHash: hash,
		FriendIDs:    []primitive.ObjectID{},
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

func (r *Resolver) addAsFriend(ctx context.Context, args map[string]any) (any, error) {
	user, ok := auth.CurrentUser[User](ctx)
	if !ok {
		return nil, errors.WrapAuth(errors.ErrNotAuthenticated, "Resolver", "addAsFriend",
			"authentication required")
	}

	name := graphql.StringArg(args, "name")
	person, err := r.store.PersonByName(ctx, name)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.WrapInvalidArgs(errors.ErrNotFound, "Resolver", "addAsFriend",
				"person not found", map[string]any{"name": name})
		}
		return nil, err
	}

	updated := *user
	if !updated.HasFriend(person.ID) {
		updated.FriendIDs = append(append([]primitive.ObjectID(nil), user.FriendIDs...), person.ID)
	}
	if err := r.store.SetFriends(ctx, updated.ID, updated.FriendIDs); err != nil {
		return nil, err
	}

	// Invalidate the eagerly loaded list so the friends field re-reads.
	updated.Friends = nil
	return &updated, nil
}

// ResolveSubscription implements graphql.SubscriptionResolver. The stream
// delivers each published person at most once and never replays; listeners
// that fall behind the buffer lose events rather than blocking publishers.
func (r *Resolver) ResolveSubscription(ctx context.Context, field string, _ map[string]any) (<-chan any, error) {
	if field != "personAdded" {
		return nil, fmt.Errorf("unknown subscription field %s", field)
	}

	sub := r.bus.Subscribe(TopicPersonAdded)
	out := make(chan any)
	go func() {
		defer close(out)
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-sub.Events():
				if !ok {
					return
				}
				select {
				case out <- payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// UserForToken loads the user referenced by a verified token, with its
// friends eagerly populated. It is the auth.UserLoader for this service.
func (r *Resolver) UserForToken(ctx context.Context, userID string) (*User, error) {
	return r.store.UserByID(ctx, userID)
}
