// Package graphql provides the schema-driven GraphQL endpoint shared by the
// graphbook services. Incoming operations are parsed and validated against
// the service schema with gqlparser, then dispatched to statically typed
// resolver methods: one handler per operation, one field function per type,
// no reflection-based field resolution.
package graphql

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
)

// Resolver maps schema fields onto store operations. Implementations
// dispatch on the field name; unknown fields are an error because the
// request was already validated against the schema.
type Resolver interface {
	// Schema returns the parsed service schema.
	Schema() *ast.Schema

	// ResolveQuery executes one top-level query field.
	ResolveQuery(ctx context.Context, field string, args map[string]any) (any, error)

	// ResolveMutation executes one top-level mutation field.
	ResolveMutation(ctx context.Context, field string, args map[string]any) (any, error)

	// ResolveField produces the value of one field on a previously
	// resolved object of the named type.
	ResolveField(ctx context.Context, typeName string, obj any, field string, args map[string]any) (any, error)
}

// SubscriptionResolver is implemented by resolvers that expose
// subscription fields.
type SubscriptionResolver interface {
	// ResolveSubscription opens the event stream backing one
	// subscription field. The stream ends when the returned channel is
	// closed; cancelling ctx must release the underlying listener.
	ResolveSubscription(ctx context.Context, field string, args map[string]any) (<-chan any, error)
}

// Params is one GraphQL request.
type Params struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is one GraphQL result.
type Response struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors gqlerror.List  `json:"errors,omitempty"`

	operation string
}

// HasErrors reports whether execution produced any error.
func (r *Response) HasErrors() bool {
	return len(r.Errors) > 0
}

// Operation returns a label for the executed operation, for logging
// and metrics.
func (r *Response) Operation() string {
	if r.operation == "" {
		return "unknown"
	}
	return r.operation
}

// Executor validates requests against a schema and runs them through a
// Resolver.
type Executor struct {
	schema   *ast.Schema
	resolver Resolver
}

// NewExecutor creates an executor for the resolver's schema.
func NewExecutor(resolver Resolver) *Executor {
	return &Executor{schema: resolver.Schema(), resolver: resolver}
}

// Execute runs a query or mutation. Subscriptions are rejected here;
// they arrive over the websocket transport.
func (e *Executor) Execute(ctx context.Context, p Params) *Response {
	doc, op, vars, errs := e.prepare(p)
	if errs != nil {
		return &Response{Errors: errs, operation: p.OperationName}
	}

	var rootDef *ast.Definition
	switch op.Operation {
	case ast.Query:
		rootDef = e.schema.Query
	case ast.Mutation:
		rootDef = e.schema.Mutation
	case ast.Subscription:
		return &Response{
			Errors:    gqlerror.List{gqlerror.Errorf("subscriptions must be requested over the websocket transport")},
			operation: operationLabel(op),
		}
	}
	if rootDef == nil {
		return &Response{
			Errors:    gqlerror.List{gqlerror.Errorf("schema does not support %s operations", op.Operation)},
			operation: operationLabel(op),
		}
	}

	ex := &execState{exec: e, fragments: doc.Fragments, vars: vars}
	data := ex.executeRoot(ctx, op, rootDef)
	return &Response{Data: data, Errors: ex.errs, operation: operationLabel(op)}
}

// Subscribe opens a subscription stream. Each event from the resolver is
// completed against the subscription's selection set and emitted as one
// Response. The stream closes when the source closes or ctx is cancelled.
func (e *Executor) Subscribe(ctx context.Context, p Params) (<-chan *Response, error) {
	sub, ok := e.resolver.(SubscriptionResolver)
	if !ok {
		return nil, gqlerror.Errorf("subscriptions are not supported by this service")
	}

	doc, op, vars, errs := e.prepare(p)
	if errs != nil {
		return nil, errs
	}
	if op.Operation != ast.Subscription {
		return nil, gqlerror.Errorf("expected a subscription operation, got %s", op.Operation)
	}

	ex := &execState{exec: e, fragments: doc.Fragments, vars: vars}
	fields := ex.collectFields(op.SelectionSet, e.schema.Subscription.Name)
	if len(fields) != 1 {
		return nil, gqlerror.Errorf("subscriptions must select exactly one field")
	}
	field := fields[0]

	src, err := sub.ResolveSubscription(ctx, field.Name, field.ArgumentMap(vars))
	if err != nil {
		return nil, toGraphQLError(err, field.Name)
	}

	out := make(chan *Response)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-src:
				if !ok {
					return
				}
				resp := e.completeEvent(ctx, doc, vars, field, payload)
				select {
				case out <- resp:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// completeEvent renders one subscription payload through the field's
// selection set.
func (e *Executor) completeEvent(ctx context.Context, doc *ast.QueryDocument,
	vars map[string]any, field *ast.Field, payload any) *Response {

	ex := &execState{exec: e, fragments: doc.Fragments, vars: vars}
	val, err := ex.completeValue(ctx, field.Definition.Type, field.SelectionSet, payload)
	if err != nil {
		ex.addError(err, field)
		return &Response{Errors: ex.errs, operation: field.Name}
	}
	return &Response{
		Data:      map[string]any{aliasOrName(field): val},
		Errors:    ex.errs,
		operation: field.Name,
	}
}

// prepare parses, validates, selects the operation and coerces variables.
func (e *Executor) prepare(p Params) (*ast.QueryDocument, *ast.OperationDefinition, map[string]any, gqlerror.List) {
	doc, listErr := gqlparser.LoadQuery(e.schema, p.Query)
	if len(listErr) > 0 {
		return nil, nil, nil, listErr
	}

	op := doc.Operations.ForName(p.OperationName)
	if op == nil {
		if p.OperationName == "" {
			return nil, nil, nil, gqlerror.List{gqlerror.Errorf("request contains no operation")}
		}
		return nil, nil, nil, gqlerror.List{gqlerror.Errorf("operation %q not found in request", p.OperationName)}
	}

	vars, err := validator.VariableValues(e.schema, op, p.Variables)
	if err != nil {
		var gqlErr *gqlerror.Error
		if !stderrors.As(err, &gqlErr) {
			gqlErr = gqlerror.Errorf("%s", err.Error())
		}
		return nil, nil, nil, gqlerror.List{gqlErr}
	}

	return doc, op, vars, nil
}

// execState carries per-execution state: the fragment table, coerced
// variables, and the accumulated field errors.
type execState struct {
	exec      *Executor
	fragments ast.FragmentDefinitionList
	vars      map[string]any
	errs      gqlerror.List
}

func (ex *execState) executeRoot(ctx context.Context, op *ast.OperationDefinition, rootDef *ast.Definition) map[string]any {
	fields := ex.collectFields(op.SelectionSet, rootDef.Name)
	out := make(map[string]any, len(fields))

	// Root fields run serially, which also gives mutations their
	// required in-order execution.
	for _, f := range fields {
		key := aliasOrName(f)
		if f.Name == "__typename" {
			out[key] = rootDef.Name
			continue
		}

		args := f.ArgumentMap(ex.vars)
		var val any
		var err error
		if op.Operation == ast.Mutation {
			val, err = ex.exec.resolver.ResolveMutation(ctx, f.Name, args)
		} else {
			val, err = ex.exec.resolver.ResolveQuery(ctx, f.Name, args)
		}
		if err == nil {
			val, err = ex.completeValue(ctx, f.Definition.Type, f.SelectionSet, val)
		}
		if err != nil {
			ex.addError(err, f)
			if f.Definition.Type.NonNull {
				// Null propagates all the way up at the root.
				return nil
			}
			val = nil
		}
		out[key] = val
	}
	return out
}

func (ex *execState) executeObject(ctx context.Context, def *ast.Definition, sels ast.SelectionSet, obj any) (map[string]any, error) {
	fields := ex.collectFields(sels, def.Name)
	out := make(map[string]any, len(fields))

	for _, f := range fields {
		key := aliasOrName(f)
		if f.Name == "__typename" {
			out[key] = def.Name
			continue
		}

		args := f.ArgumentMap(ex.vars)
		val, err := ex.exec.resolver.ResolveField(ctx, def.Name, obj, f.Name, args)
		if err == nil {
			val, err = ex.completeValue(ctx, f.Definition.Type, f.SelectionSet, val)
		}
		if err != nil {
			if f.Definition.Type.NonNull {
				return nil, err
			}
			ex.addError(err, f)
			val = nil
		}
		out[key] = val
	}
	return out, nil
}

// completeValue renders a resolver result according to its schema type.
func (ex *execState) completeValue(ctx context.Context, t *ast.Type, sels ast.SelectionSet, val any) (any, error) {
	// List types have no NamedType; check them before the nil handling so
	// a nil slice can still render as an empty non-null list.
	if t.NamedType == "" {
		return ex.completeList(ctx, t, sels, val)
	}

	if isNil(val) {
		if t.NonNull {
			return nil, fmt.Errorf("cannot return null for non-nullable field of type %s", t.Name())
		}
		return nil, nil
	}

	def := ex.exec.schema.Types[t.NamedType]
	if def == nil {
		return nil, fmt.Errorf("unknown type %s", t.NamedType)
	}

	switch def.Kind {
	case ast.Scalar, ast.Enum:
		return val, nil
	case ast.Object:
		return ex.executeObject(ctx, def, sels, val)
	default:
		return nil, fmt.Errorf("unsupported type kind %s for %s", def.Kind, def.Name)
	}
}

func (ex *execState) completeList(ctx context.Context, t *ast.Type, sels ast.SelectionSet, val any) (any, error) {
	if isNil(val) {
		if t.NonNull {
			return []any{}, nil
		}
		return nil, nil
	}

	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected list value for type %s", t.String())
	}

	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item, err := ex.completeValue(ctx, t.Elem, sels, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// collectFields flattens a selection set, expanding fragment spreads and
// inline fragments whose type condition matches the enclosing type.
func (ex *execState) collectFields(sels ast.SelectionSet, typeName string) []*ast.Field {
	var fields []*ast.Field
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			fields = append(fields, s)
		case *ast.FragmentSpread:
			frag := ex.fragments.ForName(s.Name)
			if frag == nil {
				continue
			}
			if frag.TypeCondition == "" || frag.TypeCondition == typeName {
				fields = append(fields, ex.collectFields(frag.SelectionSet, typeName)...)
			}
		case *ast.InlineFragment:
			if s.TypeCondition == "" || s.TypeCondition == typeName {
				fields = append(fields, ex.collectFields(s.SelectionSet, typeName)...)
			}
		}
	}
	return fields
}

func (ex *execState) addError(err error, field *ast.Field) {
	ex.errs = append(ex.errs, toGraphQLError(err, field.Name))
}

func aliasOrName(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func operationLabel(op *ast.OperationDefinition) string {
	if op.Name != "" {
		return op.Name
	}
	for _, sel := range op.SelectionSet {
		if f, ok := sel.(*ast.Field); ok {
			return f.Name
		}
	}
	return string(op.Operation)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
