package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"kizuna/pkg/database"
	"kizuna/pkg/engine"
)

func main() {
	dbPath := flag.String("db", "kizuna.kz", "path to the database file")
	importFile := flag.String("import", "", "SQL file to execute on startup, statements separated by ';'")
	flag.Parse()

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if *importFile != "" {
		if err := runFile(db, *importFile); err != nil {
			log.Fatalf("importing %s: %v", *importFile, err)
		}
	}

	runREPL(db)
}

func runFile(db *database.Session, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(string(content), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		execute(db, stmt)
	}
	return nil
}

func runREPL(db *database.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("kizuna> ")
	for scanner.Scan() {
		stmt := strings.TrimSpace(scanner.Text())
		if stmt != "" {
			execute(db, stmt)
		}
		fmt.Print("kizuna> ")
	}
}

func execute(db *database.Session, stmt string) {
	var uses []engine.IndexUse
	result, sel, err := db.ExecuteSQL(stmt, func(u engine.IndexUse) { uses = append(uses, u) })
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if sel != nil {
		printSelectResult(sel)
	} else if result != nil {
		fmt.Println(result.Message)
	}
	for _, u := range uses {
		fmt.Printf("(used index %q, %d match(es))\n", u.IndexName, len(u.MatchedRecordIDs))
	}
}

func printSelectResult(sel *engine.SelectResult) {
	fmt.Println(strings.Join(sel.Columns, " | "))
	for _, row := range sel.Rows {
		fmt.Println(strings.Join(row, " | "))
	}
	fmt.Printf("(%d row(s))\n", len(sel.Rows))
}
