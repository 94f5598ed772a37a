// Package phonebook implements the contact directory GraphQL service,
// including the personAdded subscription fed by the in-process event bus.
package phonebook

import (
	"sync"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// TopicPersonAdded is the bus topic carrying newly created persons.
const TopicPersonAdded = "PERSON_ADDED"

const schemaSDL = `
type Person {
  name: String!
  phone: String
  address: Address!
  id: ID!
  friendOf: [User!]!
}

type Address {
  street: String!
  city: String!
}

enum YesNo {
  YES
  NO
}

type User {
  username: String!
  friends: [Person!]!
  id: ID!
}

type Token {
  value: String!
}

type Query {
  personCount: Int!
  allPersons(phone: YesNo): [Person!]!
  findPerson(name: String!): Person
  findUser(username: String!): User
  me: User
}

type Mutation {
  addPerson(
    name: String!
    phone: String
    street: String!
    city: String!
  ): Person
  editNumber(
    name: String!
    phone: String!
  ): Person
  createUser(
    username: String!
    password: String!
  ): User
  login(
    username: String!
    password: String!
  ): Token
  addAsFriend(
    name: String!
  ): User
}

type Subscription {
  personAdded: Person!
}
`

var loadSchema = sync.OnceValue(func() *ast.Schema {
	return gqlparser.MustLoadSchema(&ast.Source{Name: "phonebook.graphql", Input: schemaSDL})
})

// Schema returns the parsed phonebook schema.
func Schema() *ast.Schema {
	return loadSchema()
}
