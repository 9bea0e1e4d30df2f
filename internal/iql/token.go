package iql

// TokenType identifies the lexical class of a token.
type TokenType int

// Token types produced by the lexer.
const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenString
	TokenNumber
	TokenFloat

	// Statement keywords
	TokenCreate
	TokenSelect
	TokenUpdate
	TokenDelete
	TokenAssign
	TokenClose
	TokenReopen
	TokenComment

	// Clause keywords
	TokenFrom
	TokenWhere
	TokenAnd
	TokenOr
	TokenNot
	TokenIn
	TokenOf
	TokenIs
	TokenNull
	TokenSet
	TokenTo
	TokenOn
	TokenWith
	TokenOrder
	TokenBy
	TokenLimit
	TokenOffset
	TokenAsc
	TokenDesc
	TokenLike
	TokenTrue
	TokenFalse

	// Entity keywords
	TokenUser
	TokenProject
	TokenIssue
	TokenUsers
	TokenProjects
	TokenIssues
	TokenComments

	// Field keywords (usable in WITH clauses and as field names)
	TokenEmail
	TokenName
	TokenTitle
	TokenKind
	TokenDescription
	TokenPriority
	TokenAssignee
	TokenOwner
	TokenLabels

	// Operators and punctuation
	TokenStar
	TokenComma
	TokenDot
	TokenHash
	TokenEq
	TokenNeq
	TokenGt
	TokenLt
	TokenGte
	TokenLte
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
)

// Token is one lexical unit of a query, carrying the byte offset where it
// starts in the input.
type Token struct {
	Type    TokenType
	Literal string
	Offset  int
}

// keywords maps lowercased keyword spellings to their token types.
// Keyword matching is case-insensitive.
var keywords = map[string]TokenType{
	"create":      TokenCreate,
	"select":      TokenSelect,
	"update":      TokenUpdate,
	"delete":      TokenDelete,
	"assign":      TokenAssign,
	"close":       TokenClose,
	"reopen":      TokenReopen,
	"comment":     TokenComment,
	"from":        TokenFrom,
	"where":       TokenWhere,
	"and":         TokenAnd,
	"or":          TokenOr,
	"not":         TokenNot,
	"in":          TokenIn,
	"of":          TokenOf,
	"is":          TokenIs,
	"null":        TokenNull,
	"set":         TokenSet,
	"to":          TokenTo,
	"on":          TokenOn,
	"with":        TokenWith,
	"order":       TokenOrder,
	"by":          TokenBy,
	"limit":       TokenLimit,
	"offset":      TokenOffset,
	"asc":         TokenAsc,
	"desc":        TokenDesc,
	"like":        TokenLike,
	"true":        TokenTrue,
	"false":       TokenFalse,
	"user":        TokenUser,
	"project":     TokenProject,
	"issue":       TokenIssue,
	"users":       TokenUsers,
	"projects":    TokenProjects,
	"issues":      TokenIssues,
	"comments":    TokenComments,
	"email":       TokenEmail,
	"name":        TokenName,
	"title":       TokenTitle,
	"kind":        TokenKind,
	"description": TokenDescription,
	"priority":    TokenPriority,
	"assignee":    TokenAssignee,
	"owner":       TokenOwner,
	"labels":      TokenLabels,
}

var tokenNames = map[TokenType]string{
	TokenEOF:         "end of input",
	TokenIdent:       "identifier",
	TokenString:      "string",
	TokenNumber:      "number",
	TokenFloat:       "float",
	TokenCreate:      "CREATE",
	TokenSelect:      "SELECT",
	TokenUpdate:      "UPDATE",
	TokenDelete:      "DELETE",
	TokenAssign:      "ASSIGN",
	TokenClose:       "CLOSE",
	TokenReopen:      "REOPEN",
	TokenComment:     "COMMENT",
	TokenFrom:        "FROM",
	TokenWhere:       "WHERE",
	TokenAnd:         "AND",
	TokenOr:          "OR",
	TokenNot:         "NOT",
	TokenIn:          "IN",
	TokenOf:          "OF",
	TokenIs:          "IS",
	TokenNull:        "NULL",
	TokenSet:         "SET",
	TokenTo:          "TO",
	TokenOn:          "ON",
	TokenWith:        "WITH",
	TokenOrder:       "ORDER",
	TokenBy:          "BY",
	TokenLimit:       "LIMIT",
	TokenOffset:      "OFFSET",
	TokenAsc:         "ASC",
	TokenDesc:        "DESC",
	TokenLike:        "LIKE",
	TokenTrue:        "TRUE",
	TokenFalse:       "FALSE",
	TokenUser:        "USER",
	TokenProject:     "PROJECT",
	TokenIssue:       "ISSUE",
	TokenUsers:       "USERS",
	TokenProjects:    "PROJECTS",
	TokenIssues:      "ISSUES",
	TokenComments:    "COMMENTS",
	TokenEmail:       "EMAIL",
	TokenName:        "NAME",
	TokenTitle:       "TITLE",
	TokenKind:        "KIND",
	TokenDescription: "DESCRIPTION",
	TokenPriority:    "PRIORITY",
	TokenAssignee:    "ASSIGNEE",
	TokenOwner:       "OWNER",
	TokenLabels:      "LABELS",
	TokenStar:        "*",
	TokenComma:       ",",
	TokenDot:         ".",
	TokenHash:        "#",
	TokenEq:          "=",
	TokenNeq:         "!=",
	TokenGt:          ">",
	TokenLt:          "<",
	TokenGte:         ">=",
	TokenLte:         "<=",
	TokenLParen:      "(",
	TokenRParen:      ")",
	TokenLBracket:    "[",
	TokenRBracket:    "]",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown token"
}

// fieldKeywords maps keyword tokens that double as field names to their
// canonical field spellings. Bare identifiers are field names as-is.
var fieldKeywords = map[TokenType]string{
	TokenEmail:       "email",
	TokenName:        "name",
	TokenTitle:       "title",
	TokenKind:        "kind",
	TokenDescription: "description",
	TokenPriority:    "priority",
	TokenAssignee:    "assignee",
	TokenOwner:       "owner",
	TokenLabels:      "labels",
	TokenUser:        "user",
	TokenProject:     "project",
	TokenIssue:       "issue",
	TokenComment:     "comment",
}

// FieldName reports the field name a token denotes, if any.
func (t Token) FieldName() (string, bool) {
	if t.Type == TokenIdent {
		return t.Literal, true
	}
	name, ok := fieldKeywords[t.Type]
	return name, ok
}
