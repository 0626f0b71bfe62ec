// Package database is the facade the SQL interface and tests drive:
// Open/Close a single .kz file and ExecuteSQL one statement at a time,
// per spec.md §6. There is no statement cache and no transaction
// manager; every ExecuteSQL call parses, plans, and executes a single
// statement against the shared engine.Context.
package database

import (
	"strings"

	"kizuna/pkg/catalog"
	"kizuna/pkg/config"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine"
	"kizuna/pkg/engine/ddl"
	"kizuna/pkg/engine/dml"
	"kizuna/pkg/logging"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/sql/parser"
	"kizuna/pkg/storage/index"
	"kizuna/pkg/storage/page"
)

// Session owns one open database's live handles: its page manager
// (buffer pool over the .kz file), catalog, and index manager.
type Session struct {
	ctx *engine.Context
}

// Open opens (creating if missing) the .kz file at path and the sibling
// directory path+".indexes" its indexes live under.
func Open(path string) (*Session, error) {
	fm, err := page.OpenFile(path, true)
	if err != nil {
		return nil, err
	}
	pm, err := page.Open(fm, config.DefaultBufferPoolFrames)
	if err != nil {
		_ = fm.Close()
		return nil, err
	}
	cat, err := catalog.Open(pm)
	if err != nil {
		_ = pm.Close()
		return nil, err
	}
	indexes, err := index.NewManager(path + ".indexes")
	if err != nil {
		_ = pm.Close()
		return nil, err
	}

	logging.WithComponent("database").Info("opened database", "path", path)
	return &Session{
		ctx: &engine.Context{Catalog: cat, PM: pm, Indexes: indexes},
	}, nil
}

// Close flushes and closes every open file the session owns.
func (s *Session) Close() error {
	if err := s.ctx.Indexes.CloseAll(); err != nil {
		return err
	}
	return s.ctx.PM.Close()
}

// ExecuteSQL parses and executes a single SQL statement, dispatching to
// the DDL or DML executor by statement type. onIndexUse, if non-nil, is
// invoked once per index scan a SELECT's access-path selection actually
// drove through (spec.md §6's observer hook). UPDATE and DELETE may also
// probe an index, but they do not invoke onIndexUse.
func (s *Session) ExecuteSQL(text string, onIndexUse func(engine.IndexUse)) (*engine.Result, *engine.SelectResult, error) {
	stmt, err := parser.Parse(strings.TrimSpace(text))
	if err != nil {
		return nil, nil, err
	}

	switch st := stmt.(type) {
	case *ast.CreateTableStatement:
		res, err := ddl.CreateTable(s.ctx, st)
		return res, nil, err
	case *ast.DropTableStatement:
		res, err := ddl.DropTable(s.ctx, st)
		return res, nil, err
	case *ast.AlterTableStatement:
		res, err := ddl.AlterTable(s.ctx, st)
		return res, nil, err
	case *ast.CreateIndexStatement:
		res, err := ddl.CreateIndex(s.ctx, st)
		return res, nil, err
	case *ast.DropIndexStatement:
		res, err := ddl.DropIndex(s.ctx, st)
		return res, nil, err
	case *ast.InsertStatement:
		res, err := dml.Insert(s.ctx, st)
		return res, nil, err
	case *ast.SelectStatement:
		sel, err := dml.Select(s.ctx, st, onIndexUse)
		return nil, sel, err
	case *ast.UpdateStatement:
		res, err := dml.Update(s.ctx, st)
		return res, nil, err
	case *ast.DeleteStatement:
		res, err := dml.Delete(s.ctx, st)
		return res, nil, err
	case *ast.TruncateStatement:
		res, err := dml.Truncate(s.ctx, st)
		return res, nil, err
	default:
		return nil, nil, dberrors.Newf(dberrors.InternalError, "unsupported statement type %T", stmt)
	}
}
