package engine

// Result is the outcome of a DDL statement or a row-mutating DML
// statement (INSERT/UPDATE/DELETE/TRUNCATE), per spec.md §6's
// `{ kind, rows_affected | SelectResult }` contract.
type Result struct {
	Message      string
	RowsAffected int
}

// SelectResult is the outcome of a SELECT statement: column headers and
// rows already rendered to their display strings (spec.md §6), ready for
// a REPL or test harness to print without further formatting.
type SelectResult struct {
	Columns []string
	Rows    [][]string
}

// IndexUse is reported once per statement that drove its access path
// through an index scan, via the optional on_index_use observer
// (spec.md §6).
type IndexUse struct {
	IndexName        string
	MatchedRecordIDs []uint64
}
