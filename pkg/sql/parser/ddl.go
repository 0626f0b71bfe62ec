package parser

import (
	"kizuna/pkg/dberrors"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/sql/lexer"
	"kizuna/pkg/types"
)

// parseCreate dispatches CREATE TABLE / CREATE [UNIQUE] INDEX after the
// leading CREATE has already been seen as the lookahead token.
func (p *Parser) parseCreate() (ast.Statement, error) {
	p.advance() // CREATE
	switch p.tok.Type {
	case lexer.TABLE:
		return p.parseCreateTable()
	case lexer.UNIQUE, lexer.INDEX:
		return p.parseCreateIndex()
	default:
		return nil, p.syntaxErr("TABLE or INDEX")
	}
}

func (p *Parser) parseCreateTable() (ast.Statement, error) {
	if _, err := p.expect(lexer.TABLE); err != nil {
		return nil, err
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}

	var cols []ast.ColumnDef
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ast.CreateTableStatement{Table: name, Columns: cols}, nil
}

func (p *Parser) parseColumnDef() (ast.ColumnDef, error) {
	name, err := p.identifier()
	if err != nil {
		return ast.ColumnDef{}, err
	}
	dt, err := p.parseDataType()
	if err != nil {
		return ast.ColumnDef{}, err
	}
	def := ast.ColumnDef{Name: name, Type: dt}

	for {
		switch p.tok.Type {
		case lexer.NOT:
			p.advance()
			if _, err := p.expect(lexer.NULL); err != nil {
				return ast.ColumnDef{}, err
			}
			def.NotNull = true
		case lexer.PRIMARY:
			p.advance()
			if _, err := p.expect(lexer.KEY); err != nil {
				return ast.ColumnDef{}, err
			}
			def.PrimaryKey = true
			def.NotNull = true
		case lexer.UNIQUE:
			p.advance()
			def.Unique = true
		case lexer.DEFAULT:
			p.advance()
			lit, err := p.parseDefaultLiteral()
			if err != nil {
				return ast.ColumnDef{}, err
			}
			def.HasDefault = true
			def.Default = lit
		default:
			return def, nil
		}
	}
}

// parseDefaultLiteral parses the constant expression following DEFAULT.
// Only literals are accepted (no expressions), matching spec.md §4.8's
// column-definition grammar.
func (p *Parser) parseDefaultLiteral() (types.Value, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return types.Value{}, err
	}
	lit, ok := expr.(*ast.Literal)
	if !ok {
		return types.Value{}, dberrors.New(dberrors.SyntaxError, "DEFAULT requires a literal value").WithPos(p.tok.Pos)
	}
	return lit.Value, nil
}

func (p *Parser) parseDrop() (ast.Statement, error) {
	p.advance() // DROP
	switch p.tok.Type {
	case lexer.TABLE:
		return p.parseDropTable()
	case lexer.INDEX:
		return p.parseDropIndex()
	default:
		return nil, p.syntaxErr("TABLE or INDEX")
	}
}

func (p *Parser) parseDropTable() (ast.Statement, error) {
	p.advance() // TABLE
	ifExists := false
	if p.at(lexer.IF) {
		p.advance()
		if _, err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		ifExists = true
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	cascade := false
	if p.at(lexer.CASCADE) {
		cascade = true
		p.advance()
	}
	return &ast.DropTableStatement{Table: name, IfExists: ifExists, Cascade: cascade}, nil
}

func (p *Parser) parseCreateIndex() (ast.Statement, error) {
	unique := false
	if p.at(lexer.UNIQUE) {
		unique = true
		p.advance()
	}
	if _, err := p.expect(lexer.INDEX); err != nil {
		return nil, err
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ON); err != nil {
		return nil, err
	}
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var cols []string
	for {
		c, err := p.identifier()
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ast.CreateIndexStatement{Index: name, Table: table, Columns: cols, IsUnique: unique}, nil
}

func (p *Parser) parseDropIndex() (ast.Statement, error) {
	p.advance() // INDEX
	ifExists := false
	if p.at(lexer.IF) {
		p.advance()
		if _, err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		ifExists = true
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	return &ast.DropIndexStatement{Index: name, IfExists: ifExists}, nil
}

func (p *Parser) parseAlter() (ast.Statement, error) {
	p.advance() // ALTER
	if _, err := p.expect(lexer.TABLE); err != nil {
		return nil, err
	}
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}
	switch p.tok.Type {
	case lexer.ADD:
		p.advance()
		if p.at(lexer.COLUMN) {
			p.advance()
		}
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		if col.PrimaryKey {
			return nil, dberrors.New(dberrors.InvalidConstraint, "cannot add a PRIMARY KEY column via ALTER TABLE").WithPos(p.tok.Pos)
		}
		return &ast.AlterTableStatement{Table: table, Action: &ast.AddColumnAction{Column: col}}, nil
	case lexer.DROP:
		p.advance()
		if p.at(lexer.COLUMN) {
			p.advance()
		}
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		return &ast.AlterTableStatement{Table: table, Action: &ast.DropColumnAction{Column: name}}, nil
	default:
		return nil, p.syntaxErr("ADD or DROP")
	}
}
