package iql

import (
	"strconv"
	"strings"
)

// Parse compiles one IQL statement. It returns a *LexError for malformed
// tokens and a *ParseError for grammar violations; exactly one statement
// per invocation is accepted.
func Parse(input string) (Statement, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenEOF {
		return nil, p.unexpected("end of input")
	}
	return stmt, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Type: TokenEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(t TokenType) bool {
	if p.current().Type == t {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(t TokenType) error {
	if p.current().Type == t {
		p.advance()
		return nil
	}
	return p.unexpected(t.String())
}

func (p *parser) unexpected(expected string) *ParseError {
	tok := p.current()
	found := tok.Type.String()
	if tok.Type == TokenIdent {
		found = "identifier " + strconv.Quote(tok.Literal)
	}
	return &ParseError{Offset: tok.Offset, Expected: expected, Found: found}
}

func (p *parser) parseStatement() (Statement, error) {
	switch p.current().Type {
	case TokenCreate:
		return p.parseCreate()
	case TokenSelect:
		return p.parseSelect()
	case TokenUpdate:
		return p.parseUpdate()
	case TokenDelete:
		return p.parseDelete()
	case TokenAssign:
		return p.parseAssign()
	case TokenClose:
		return p.parseClose()
	case TokenReopen:
		return p.parseReopen()
	case TokenComment:
		return p.parseComment()
	default:
		return nil, p.unexpected("statement keyword")
	}
}

func (p *parser) parseCreate() (Statement, error) {
	p.advance() // CREATE
	switch p.current().Type {
	case TokenUser:
		return p.parseCreateUser()
	case TokenProject:
		return p.parseCreateProject()
	case TokenIssue:
		return p.parseCreateIssue()
	case TokenComment:
		return p.parseComment()
	default:
		return nil, p.unexpected("USER, PROJECT, ISSUE, or COMMENT")
	}
}

func (p *parser) parseCreateUser() (Statement, error) {
	p.advance() // USER
	username, err := p.parseIdent("username")
	if err != nil {
		return nil, err
	}

	stmt := &CreateUserStmt{Username: username}
	if p.match(TokenWith) {
		seen := false
		for {
			switch p.current().Type {
			case TokenEmail:
				p.advance()
				if stmt.Email, err = p.parseStringValue("EMAIL"); err != nil {
					return nil, err
				}
			case TokenName:
				p.advance()
				if stmt.Name, err = p.parseStringValue("NAME"); err != nil {
					return nil, err
				}
			default:
				if !seen {
					return nil, p.unexpected("at least one of EMAIL or NAME after WITH")
				}
				return stmt, nil
			}
			seen = true
		}
	}
	return stmt, nil
}

func (p *parser) parseCreateProject() (Statement, error) {
	p.advance() // PROJECT
	projectID, err := p.parseIdent("project ID")
	if err != nil {
		return nil, err
	}

	stmt := &CreateProjectStmt{ProjectID: projectID}
	if p.match(TokenWith) {
		seen := false
		for {
			switch p.current().Type {
			case TokenName:
				p.advance()
				if stmt.Name, err = p.parseStringValue("NAME"); err != nil {
					return nil, err
				}
			case TokenDescription:
				p.advance()
				if stmt.Description, err = p.parseStringValue("DESCRIPTION"); err != nil {
					return nil, err
				}
			case TokenOwner:
				p.advance()
				if stmt.Owner, err = p.parseIdent("owner"); err != nil {
					return nil, err
				}
			default:
				if !seen {
					return nil, p.unexpected("at least one of NAME, DESCRIPTION, or OWNER after WITH")
				}
				return stmt, nil
			}
			seen = true
		}
	}
	return stmt, nil
}

func (p *parser) parseCreateIssue() (Statement, error) {
	p.advance() // ISSUE
	stmt := &CreateIssueStmt{}

	var err error
	if p.match(TokenOf) {
		if err = p.expect(TokenKind); err != nil {
			return nil, err
		}
		if stmt.Kind, err = p.parseIdent("issue kind"); err != nil {
			return nil, err
		}
	}

	if err = p.expect(TokenIn); err != nil {
		return nil, err
	}
	if stmt.Project, err = p.parseIdent("project ID"); err != nil {
		return nil, err
	}
	if err = p.expect(TokenWith); err != nil {
		return nil, err
	}

	for done := false; !done; {
		switch p.current().Type {
		case TokenTitle:
			p.advance()
			if stmt.Title, err = p.parseStringValue("TITLE"); err != nil {
				return nil, err
			}
		case TokenDescription:
			p.advance()
			if stmt.Description, err = p.parseStringValue("DESCRIPTION"); err != nil {
				return nil, err
			}
		case TokenPriority:
			p.advance()
			if stmt.Priority, err = p.parseIdent("priority"); err != nil {
				return nil, err
			}
		case TokenAssignee:
			p.advance()
			if stmt.Assignee, err = p.parseIdent("assignee"); err != nil {
				return nil, err
			}
		case TokenLabels:
			p.advance()
			if stmt.Labels, err = p.parseLabelList(); err != nil {
				return nil, err
			}
		default:
			done = true
		}
	}

	if stmt.Title == "" {
		return nil, p.unexpected("TITLE clause")
	}
	return stmt, nil
}

func (p *parser) parseLabelList() ([]string, error) {
	if err := p.expect(TokenLBracket); err != nil {
		return nil, err
	}
	var labels []string
	for {
		label, err := p.parseStringValue("label")
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
		if !p.match(TokenComma) {
			break
		}
	}
	if err := p.expect(TokenRBracket); err != nil {
		return nil, err
	}
	return labels, nil
}

// parseComment handles COMMENT ON ISSUE ref WITH content [AUTHOR user],
// reached both from the top level and from CREATE COMMENT.
func (p *parser) parseComment() (Statement, error) {
	p.advance() // COMMENT
	if err := p.expect(TokenOn); err != nil {
		return nil, err
	}
	if err := p.expect(TokenIssue); err != nil {
		return nil, err
	}
	ref, err := p.parseIssueRef()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenWith); err != nil {
		return nil, err
	}
	content, err := p.parseStringValue("comment content")
	if err != nil {
		return nil, err
	}

	stmt := &CommentStmt{Issue: ref, Content: content}
	// AUTHOR is not a reserved word; it arrives as an identifier.
	if cur := p.current(); cur.Type == TokenIdent && strings.EqualFold(cur.Literal, "author") {
		p.advance()
		if stmt.Author, err = p.parseIdent("author"); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *parser) parseSelect() (Statement, error) {
	p.advance() // SELECT
	stmt := &SelectStmt{}

	if !p.match(TokenStar) {
		for {
			col, err := p.parseFieldName()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			if !p.match(TokenComma) {
				break
			}
		}
	}

	if err := p.expect(TokenFrom); err != nil {
		return nil, err
	}
	entity, ok := entityFromToken(p.current().Type)
	if !ok {
		return nil, p.unexpected("entity name (users, projects, issues, comments)")
	}
	p.advance()
	stmt.From = entity

	var err error
	if p.match(TokenWhere) {
		if stmt.Where, err = p.parseFilter(); err != nil {
			return nil, err
		}
	}
	if p.match(TokenOrder) {
		if err = p.expect(TokenBy); err != nil {
			return nil, err
		}
		field, err := p.parseFieldName()
		if err != nil {
			return nil, err
		}
		ob := &OrderBy{Field: field}
		if p.match(TokenDesc) {
			ob.Descending = true
		} else {
			p.match(TokenAsc) // ASC is the default
		}
		stmt.OrderBy = ob
	}
	if p.match(TokenLimit) {
		n, err := p.parseCount("LIMIT")
		if err != nil {
			return nil, err
		}
		stmt.Limit = &n
		if p.match(TokenOffset) {
			m, err := p.parseCount("OFFSET")
			if err != nil {
				return nil, err
			}
			stmt.Offset = &m
		}
	}
	return stmt, nil
}

// parseFilter parses a WHERE expression with precedence climbing:
// OR binds loosest, then AND, then NOT and parentheses.
func (p *parser) parseFilter() (FilterExpr, error) {
	return p.parseOrExpr()
}

func (p *parser) parseOrExpr() (FilterExpr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOr) {
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &OrExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAndExpr() (FilterExpr, error) {
	left, err := p.parsePrimaryFilter()
	if err != nil {
		return nil, err
	}
	for p.match(TokenAnd) {
		right, err := p.parsePrimaryFilter()
		if err != nil {
			return nil, err
		}
		left = &AndExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePrimaryFilter() (FilterExpr, error) {
	if p.match(TokenNot) {
		expr, err := p.parsePrimaryFilter()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: expr}, nil
	}
	if p.match(TokenLParen) {
		expr, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	}

	field, err := p.parseFieldName()
	if err != nil {
		return nil, err
	}

	if p.match(TokenIs) {
		negated := p.match(TokenNot)
		if err := p.expect(TokenNull); err != nil {
			return nil, err
		}
		return &NullCheck{Field: field, Negated: negated}, nil
	}

	if p.match(TokenIn) {
		if err := p.expect(TokenLParen); err != nil {
			return nil, err
		}
		var values []Value
		for {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			if !p.match(TokenComma) {
				break
			}
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return &InExpr{Field: field, Values: values}, nil
	}

	op, err := p.parseCompareOp()
	if err != nil {
		return nil, err
	}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &Comparison{Field: field, Op: op, Value: value}, nil
}

func (p *parser) parseCompareOp() (CompareOp, error) {
	var op CompareOp
	switch p.current().Type {
	case TokenEq:
		op = OpEq
	case TokenNeq:
		op = OpNeq
	case TokenGt:
		op = OpGt
	case TokenLt:
		op = OpLt
	case TokenGte:
		op = OpGte
	case TokenLte:
		op = OpLte
	case TokenLike:
		op = OpLike
	default:
		return 0, p.unexpected("comparison operator")
	}
	p.advance()
	return op, nil
}

func (p *parser) parseUpdate() (Statement, error) {
	p.advance() // UPDATE
	stmt := &UpdateStmt{}

	switch p.current().Type {
	case TokenUser:
		p.advance()
		key, err := p.parseIdent("username")
		if err != nil {
			return nil, err
		}
		stmt.Entity, stmt.Key = EntityUsers, key
	case TokenProject:
		p.advance()
		key, err := p.parseIdent("project ID")
		if err != nil {
			return nil, err
		}
		stmt.Entity, stmt.Key = EntityProjects, key
	case TokenIssue:
		p.advance()
		ref, err := p.parseIssueRef()
		if err != nil {
			return nil, err
		}
		stmt.Entity, stmt.Key = EntityIssues, ref.String()
	default:
		// Comments are immutable; UPDATE COMMENT is not a statement.
		return nil, p.unexpected("USER, PROJECT, or ISSUE")
	}

	if err := p.expect(TokenSet); err != nil {
		return nil, err
	}
	for {
		field, err := p.parseFieldName()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenEq); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		stmt.Sets = append(stmt.Sets, Assignment{Field: field, Value: value})
		if !p.match(TokenComma) {
			break
		}
	}
	return stmt, nil
}

func (p *parser) parseDelete() (Statement, error) {
	p.advance() // DELETE
	stmt := &DeleteStmt{}

	switch p.current().Type {
	case TokenUser:
		p.advance()
		key, err := p.parseIdent("username")
		if err != nil {
			return nil, err
		}
		stmt.Entity, stmt.Key = EntityUsers, key
	case TokenProject:
		p.advance()
		key, err := p.parseIdent("project ID")
		if err != nil {
			return nil, err
		}
		stmt.Entity, stmt.Key = EntityProjects, key
	case TokenIssue:
		p.advance()
		ref, err := p.parseIssueRef()
		if err != nil {
			return nil, err
		}
		stmt.Entity, stmt.Key = EntityIssues, ref.String()
	case TokenComment:
		p.advance()
		key, err := p.parseIdent("comment ID")
		if err != nil {
			return nil, err
		}
		stmt.Entity, stmt.Key = EntityComments, key
	default:
		return nil, p.unexpected("USER, PROJECT, ISSUE, or COMMENT")
	}
	return stmt, nil
}

func (p *parser) parseAssign() (Statement, error) {
	p.advance() // ASSIGN
	if err := p.expect(TokenIssue); err != nil {
		return nil, err
	}
	ref, err := p.parseIssueRef()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenTo); err != nil {
		return nil, err
	}
	assignee, err := p.parseIdent("assignee")
	if err != nil {
		return nil, err
	}
	return &AssignStmt{Issue: ref, Assignee: assignee}, nil
}

func (p *parser) parseClose() (Statement, error) {
	p.advance() // CLOSE
	if err := p.expect(TokenIssue); err != nil {
		return nil, err
	}
	ref, err := p.parseIssueRef()
	if err != nil {
		return nil, err
	}
	stmt := &CloseStmt{Issue: ref}
	if p.match(TokenWith) {
		// A well-known reason word or a free-form quoted string.
		if stmt.Reason, err = p.parseStringValue("close reason"); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *parser) parseReopen() (Statement, error) {
	p.advance() // REOPEN
	if err := p.expect(TokenIssue); err != nil {
		return nil, err
	}
	ref, err := p.parseIssueRef()
	if err != nil {
		return nil, err
	}
	return &ReopenStmt{Issue: ref}, nil
}

func (p *parser) parseIssueRef() (IssueRef, error) {
	if p.current().Type != TokenIdent {
		return IssueRef{}, p.unexpected("issue reference (project#number)")
	}
	project := p.current().Literal
	p.advance()
	if err := p.expect(TokenHash); err != nil {
		return IssueRef{}, err
	}
	seq, err := p.parseCount("issue number")
	if err != nil {
		return IssueRef{}, err
	}
	return IssueRef{Project: project, Seq: seq}, nil
}

func (p *parser) parseValue() (Value, error) {
	tok := p.current()
	switch tok.Type {
	case TokenString:
		p.advance()
		return Value{Kind: ValueString, Text: tok.Literal}, nil
	case TokenNumber:
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return Value{}, p.unexpected("number")
		}
		p.advance()
		return Value{Kind: ValueNumber, Int: n}, nil
	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return Value{}, p.unexpected("float")
		}
		p.advance()
		return Value{Kind: ValueFloat, Float: f}, nil
	case TokenTrue:
		p.advance()
		return Value{Kind: ValueBool, Bool: true}, nil
	case TokenFalse:
		p.advance()
		return Value{Kind: ValueBool, Bool: false}, nil
	case TokenNull:
		p.advance()
		return Value{Kind: ValueNull}, nil
	case TokenIdent:
		p.advance()
		return Value{Kind: ValueIdent, Text: tok.Literal}, nil
	default:
		return Value{}, p.unexpected("literal value")
	}
}

// parseFieldName accepts bare identifiers plus the keyword tokens that
// double as field names (name, title, owner, ...).
func (p *parser) parseFieldName() (string, error) {
	if name, ok := p.current().FieldName(); ok {
		p.advance()
		return name, nil
	}
	return "", p.unexpected("field name")
}

// parseIdent accepts an identifier, letting field keywords serve as
// identifiers so that reserved-looking names (name, owner) stay usable.
func (p *parser) parseIdent(what string) (string, error) {
	if p.current().Type == TokenIdent {
		lit := p.current().Literal
		p.advance()
		return lit, nil
	}
	if name, ok := fieldKeywords[p.current().Type]; ok {
		p.advance()
		return name, nil
	}
	return "", p.unexpected("identifier for " + what)
}

// parseStringValue accepts a quoted string or a bare identifier, matching
// the tolerant clause-value handling of the language.
func (p *parser) parseStringValue(what string) (string, error) {
	tok := p.current()
	if tok.Type == TokenString || tok.Type == TokenIdent {
		p.advance()
		return tok.Literal, nil
	}
	return "", p.unexpected("string for " + what)
}

func (p *parser) parseCount(what string) (int, error) {
	tok := p.current()
	if tok.Type != TokenNumber {
		return 0, p.unexpected("number for " + what)
	}
	n, err := strconv.Atoi(tok.Literal)
	if err != nil || n < 0 {
		return 0, p.unexpected("non-negative number for " + what)
	}
	p.advance()
	return n, nil
}
