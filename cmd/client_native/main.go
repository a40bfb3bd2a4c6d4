// Embedded-mode smoke client: runs a few statements against an
// in-process database, no server needed.
package main

import (
	"fmt"
	"log"

	"github.com/tidesql/tidesql"
)

func main() {
	db, err := tidesql.Open(tidesql.ModeMemory, "")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	s := db.Session()
	defer s.Close()

	stmts := []string{
		"CREATE TABLE users (id INT NOT NULL, name STRING, active BOOL DEFAULT true)",
		"INSERT INTO users VALUES (1, 'ann', true), (2, 'bob', false), (3, 'cat', true)",
		"SELECT name FROM users WHERE active = true ORDER BY id",
		"SELECT count(*) FROM users",
	}
	for _, stmt := range stmts {
		res, err := s.Exec(stmt)
		if err != nil {
			log.Fatalf("%s: %v", stmt, err)
		}
		switch {
		case res.Message != "":
			fmt.Println(res.Message)
		case len(res.Columns) > 0:
			fmt.Println(res.Columns)
			for _, row := range res.Rows {
				fmt.Println(row)
			}
		default:
			fmt.Printf("%d rows affected\n", res.AffectedRows)
		}
	}
}
