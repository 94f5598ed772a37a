// Package library implements the book catalog GraphQL service: the schema,
// the domain models, the store backing them, and the resolver that maps
// operations onto the store.
package library

import (
	"sync"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

const schemaSDL = `
type Book {
  title: String!
  published: Int!
  author: Author!
  genres: [String!]!
  id: ID!
}

type Author {
  name: String!
  id: ID!
  born: Int
  bookCount: Int!
}

type User {
  username: String!
  favoriteGenre: String!
  id: ID!
}

type Token {
  value: String!
}

type Query {
  bookCount: Int!
  authorCount: Int!
  allBooks(author: String, genres: [String!]): [Book!]!
  allAuthors: [Author!]!
  allUsers: [User!]!
  me: User
}

type Mutation {
  addBook(
    title: String!
    published: Int!
    author: String!
    genres: [String!]
  ): Book
  editAuthor(
    name: String!
    setBornTo: Int!
  ): Author
  createUser(
    username: String!
    favoriteGenre: String!
    password: String!
  ): User
  login(
    username: String!
    password: String!
  ): Token
  addFavoriteGenre(
    favoriteGenre: String!
  ): User
}
`

var loadSchema = sync.OnceValue(func() *ast.Schema {
	return gqlparser.MustLoadSchema(&ast.Source{Name: "library.graphql", Input: schemaSDL})
})

// Schema returns the parsed library schema.
func Schema() *ast.Schema {
	return loadSchema()
}
