package database

import (
	"path/filepath"
	"strings"
	"testing"

	"kizuna/pkg/engine"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "db.kz"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func execAll(t *testing.T, db *Session, stmts string) {
	t.Helper()
	for _, s := range strings.Split(stmts, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := db.ExecuteSQL(s, nil); err != nil {
			t.Fatalf("executing %q: %v", s, err)
		}
	}
}

func execSelect(t *testing.T, db *Session, stmt string) *engine.SelectResult {
	t.Helper()
	_, sel, err := db.ExecuteSQL(stmt, nil)
	if err != nil {
		t.Fatalf("executing %q: %v", stmt, err)
	}
	if sel == nil {
		t.Fatalf("expected a SelectResult for %q", stmt)
	}
	return sel
}

func joinRows(rows [][]string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("|")
	}
	return b.String()
}

// Scenario 1 from spec.md §8: CREATE TABLE, a unique index, two inserts,
// then an ALTER TABLE ADD COLUMN with a default, selected back out.
func TestScenarioAddColumnDefault(t *testing.T) {
	db := newTestSession(t)
	execAll(t, db, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(32) NOT NULL, age INTEGER DEFAULT 0);
		CREATE UNIQUE INDEX idx_users_name ON users(name);
		INSERT INTO users (id,name,age) VALUES (1,'alice',30);
		INSERT INTO users (id,name,age) VALUES (2,'bob',40);
		ALTER TABLE users ADD COLUMN status BOOLEAN DEFAULT TRUE;
	`)

	sel := execSelect(t, db, "SELECT id,status FROM users ORDER BY id")
	want := "1,TRUE|2,TRUE|"
	if got := joinRows(sel.Rows); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// Scenario 2 from spec.md §8: DROP COLUMN, and an index referencing the
// dropped column is dropped automatically with it.
func TestScenarioDropColumnDropsDependentIndex(t *testing.T) {
	db := newTestSession(t)
	execAll(t, db, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(32) NOT NULL, age INTEGER DEFAULT 0);
		INSERT INTO users (id,name,age) VALUES (1,'alice',30);
		INSERT INTO users (id,name,age) VALUES (2,'bob',40);
		ALTER TABLE users ADD COLUMN status BOOLEAN DEFAULT TRUE;
		CREATE INDEX idx_users_age ON users(age);
		ALTER TABLE users DROP COLUMN age;
	`)

	sel := execSelect(t, db, "SELECT id,name,status FROM users ORDER BY id")
	want := "1,alice,TRUE|2,bob,TRUE|"
	if got := joinRows(sel.Rows); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	if _, _, err := db.ExecuteSQL("CREATE INDEX idx_users_age2 ON users(age)", nil); err == nil {
		t.Fatalf("expected an error referencing a dropped column")
	}
}

func seedEmployees(t *testing.T, db *Session) {
	t.Helper()
	execAll(t, db, `
		CREATE TABLE employees (id INTEGER PRIMARY KEY, name VARCHAR(32), active BOOLEAN, age INTEGER, joined DATE, nickname VARCHAR(16));
		INSERT INTO employees VALUES (1,'amy',TRUE,25,'2023-05-01','ace');
		INSERT INTO employees VALUES (2,'beth',TRUE,34,'2022-04-15',NULL);
		INSERT INTO employees VALUES (3,'cora',FALSE,31,'2020-01-01','cee');
		INSERT INTO employees VALUES (4,'dina',TRUE,41,'2019-12-12',NULL);
	`)
}

// Scenario 3 from spec.md §8: WHERE with AND, IS NULL, DISTINCT, and the
// full set of aggregates over the seeded employees table.
func TestScenarioEmployeeQueries(t *testing.T) {
	db := newTestSession(t)
	seedEmployees(t, db)

	sel := execSelect(t, db, "SELECT name FROM employees WHERE active AND age>=30 LIMIT 5")
	if got := joinRows(sel.Rows); got != "beth|dina|" {
		t.Fatalf("active/age filter: got %q", got)
	}

	sel = execSelect(t, db, "SELECT id FROM employees WHERE nickname IS NULL")
	if got := joinRows(sel.Rows); got != "2|4|" {
		t.Fatalf("IS NULL filter: got %q", got)
	}

	sel = execSelect(t, db, "SELECT DISTINCT nickname FROM employees ORDER BY nickname")
	if got := joinRows(sel.Rows); got != "ace|cee|NULL|" {
		t.Fatalf("DISTINCT: got %q", got)
	}

	sel = execSelect(t, db, "SELECT COUNT(*), COUNT(nickname), SUM(age), AVG(age), MIN(name), MAX(joined) FROM employees")
	want := "4,2,131,32.75,amy,2023-05-01|"
	if got := joinRows(sel.Rows); got != want {
		t.Fatalf("aggregates: got %q, want %q", got, want)
	}
}

// Scenario 5 from spec.md §8: an inner join between employees and badges.
func TestScenarioInnerJoin(t *testing.T) {
	db := newTestSession(t)
	seedEmployees(t, db)
	execAll(t, db, `
		CREATE TABLE badges (employee_id INT, badge VARCHAR(16));
		INSERT INTO badges VALUES (1,'mentor');
		INSERT INTO badges VALUES (2,'lead');
		INSERT INTO badges VALUES (4,'mentor');
		INSERT INTO badges VALUES (1,'coach');
	`)

	sel := execSelect(t, db, `
		SELECT e.name,b.badge FROM employees e
		INNER JOIN badges b ON e.id=b.employee_id
		ORDER BY e.id
	`)
	want := "amy,mentor|amy,coach|beth,lead|dina,mentor|"
	if got := joinRows(sel.Rows); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUpdateRelocatesIndexEntry(t *testing.T) {
	db := newTestSession(t)
	execAll(t, db, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(32) NOT NULL);
		CREATE UNIQUE INDEX idx_users_name ON users(name);
		INSERT INTO users (id,name) VALUES (1,'alice');
		INSERT INTO users (id,name) VALUES (2,'bob');
	`)

	if _, _, err := db.ExecuteSQL("UPDATE users SET name='carol' WHERE id=1", nil); err != nil {
		t.Fatalf("UPDATE: %v", err)
	}

	sel := execSelect(t, db, "SELECT name FROM users WHERE id=1")
	if got := joinRows(sel.Rows); got != "carol|" {
		t.Fatalf("got %q", got)
	}

	if _, _, err := db.ExecuteSQL("UPDATE users SET name='bob' WHERE id=1", nil); err == nil {
		t.Fatalf("expected a duplicate-key error renaming into an existing unique value")
	}
}

func TestDeleteRemovesIndexEntries(t *testing.T) {
	db := newTestSession(t)
	execAll(t, db, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(32) NOT NULL);
		CREATE UNIQUE INDEX idx_users_name ON users(name);
		INSERT INTO users (id,name) VALUES (1,'alice');
	`)

	if _, res, err := db.ExecuteSQL("DELETE FROM users WHERE id=1", nil); err != nil {
		t.Fatalf("DELETE: %v", err)
	} else if res != nil {
		t.Fatalf("DELETE returned a SelectResult")
	}

	// The unique slot should be free again now that the row (and its
	// index entry) is gone.
	execAll(t, db, "INSERT INTO users (id,name) VALUES (2,'alice')")
	sel := execSelect(t, db, "SELECT id FROM users")
	if got := joinRows(sel.Rows); got != "2|" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateClearsIndexes(t *testing.T) {
	db := newTestSession(t)
	execAll(t, db, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(32) NOT NULL);
		CREATE UNIQUE INDEX idx_users_name ON users(name);
		INSERT INTO users (id,name) VALUES (1,'alice');
		TRUNCATE TABLE users;
		INSERT INTO users (id,name) VALUES (2,'alice');
	`)

	sel := execSelect(t, db, "SELECT id,name FROM users")
	if got := joinRows(sel.Rows); got != "2,alice|" {
		t.Fatalf("got %q", got)
	}
}
