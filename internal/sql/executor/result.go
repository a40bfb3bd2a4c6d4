package executor

import "github.com/tidesql/tidesql/internal/sql/types"

// Result is what one statement returns to the caller. Row-producing
// statements fill Columns/Rows, DML fills AffectedRows, and DDL plus
// transaction control fill Message. The JSON form crosses the wire
// protocol unchanged.
type Result struct {
	Columns      []string    `json:"columns,omitempty"`
	Rows         []types.Row `json:"rows,omitempty"`
	AffectedRows int64       `json:"affected_rows,omitempty"`
	Message      string      `json:"message,omitempty"`
}
