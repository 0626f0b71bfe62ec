package parser

import (
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/sql/lexer"
)

func (p *Parser) parseInsert() (ast.Statement, error) {
	p.advance() // INSERT
	if _, err := p.expect(lexer.INTO); err != nil {
		return nil, err
	}
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}

	var cols []string
	if p.at(lexer.LPAREN) {
		p.advance()
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
	}

	if _, err := p.expect(lexer.VALUES); err != nil {
		return nil, err
	}

	var rows [][]ast.Expression
	for {
		row, err := p.parseValueTuple()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return &ast.InsertStatement{Table: table, Columns: cols, Rows: rows}, nil
}

func (p *Parser) parseValueTuple() ([]ast.Expression, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var vals []ast.Expression
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		vals = append(vals, e)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return vals, nil
}

func (p *Parser) parseUpdate() (ast.Statement, error) {
	p.advance() // UPDATE
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SET); err != nil {
		return nil, err
	}
	var sets []ast.Assignment
	for {
		col, err := p.identifier()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sets = append(sets, ast.Assignment{Column: col, Value: val})
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	var where ast.Expression
	if p.at(lexer.WHERE) {
		p.advance()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return &ast.UpdateStatement{Table: table, Set: sets, Where: where}, nil
}

func (p *Parser) parseDelete() (ast.Statement, error) {
	p.advance() // DELETE
	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}
	var where ast.Expression
	if p.at(lexer.WHERE) {
		p.advance()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return &ast.DeleteStatement{Table: table, Where: where}, nil
}

func (p *Parser) parseTruncate() (ast.Statement, error) {
	p.advance() // TRUNCATE
	if p.at(lexer.TABLE) {
		p.advance()
	}
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}
	return &ast.TruncateStatement{Table: table}, nil
}

func (p *Parser) parseSelect() (ast.Statement, error) {
	p.advance() // SELECT
	distinct := false
	if p.at(lexer.DISTINCT) {
		distinct = true
		p.advance()
	}

	var items []ast.SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}

	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	from, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}

	var joins []ast.JoinClause
	for p.at(lexer.JOIN) || p.at(lexer.INNER) {
		if p.at(lexer.INNER) {
			p.advance()
		}
		if _, err := p.expect(lexer.JOIN); err != nil {
			return nil, err
		}
		joinTable, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.ON); err != nil {
			return nil, err
		}
		on, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		joins = append(joins, ast.JoinClause{Table: joinTable, On: on})
	}

	var where ast.Expression
	if p.at(lexer.WHERE) {
		p.advance()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}

	var orderBy []ast.OrderItem
	if p.at(lexer.ORDER) {
		p.advance()
		if _, err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			desc := false
			switch p.tok.Type {
			case lexer.ASC:
				p.advance()
			case lexer.DESC:
				desc = true
				p.advance()
			}
			orderBy = append(orderBy, ast.OrderItem{Expr: e, Desc: desc})
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}

	var limit *int64
	if p.at(lexer.LIMIT) {
		p.advance()
		tok, err := p.expect(lexer.NUMBER)
		if err != nil {
			return nil, err
		}
		v, verr := parseNumberValue(tok.Value, false)
		if verr != nil {
			return nil, verr
		}
		n := v.AsInt64()
		limit = &n
	}

	return &ast.SelectStatement{
		Distinct: distinct,
		Items:    items,
		From:     from,
		Joins:    joins,
		Where:    where,
		OrderBy:  orderBy,
		Limit:    limit,
	}, nil
}

func (p *Parser) parseSelectItem() (ast.SelectItem, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return ast.SelectItem{}, err
	}
	alias := ""
	if p.at(lexer.AS) {
		p.advance()
		a, err := p.identifier()
		if err != nil {
			return ast.SelectItem{}, err
		}
		alias = a
	} else if p.at(lexer.IDENTIFIER) {
		alias = p.tok.Value
		p.advance()
	}
	return ast.SelectItem{Expr: expr, Alias: alias}, nil
}

func (p *Parser) parseTableRef() (ast.TableRef, error) {
	name, err := p.identifier()
	if err != nil {
		return ast.TableRef{}, err
	}
	alias := ""
	if p.at(lexer.AS) {
		p.advance()
		a, err := p.identifier()
		if err != nil {
			return ast.TableRef{}, err
		}
		alias = a
	} else if p.at(lexer.IDENTIFIER) {
		alias = p.tok.Value
		p.advance()
	}
	ref := ast.TableRef{Name: name, Alias: alias}
	if ref.Alias == "" {
		ref.Alias = ref.Name
	}
	return ref, nil
}
