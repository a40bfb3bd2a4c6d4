package tidesql

import (
	"fmt"

	"github.com/tidesql/tidesql/internal/catalog"
	"github.com/tidesql/tidesql/internal/engine"
	"github.com/tidesql/tidesql/internal/sql/executor"
	"github.com/tidesql/tidesql/internal/sql/parser"
	"github.com/tidesql/tidesql/internal/sql/planner"
	"github.com/tidesql/tidesql/internal/sql/sqlerr"
)

// Result is what every statement returns to the client.
type Result = executor.Result

// Session owns the transaction state of one client. Statements run in
// their own transaction unless the client opened one with BEGIN; then
// everything up to COMMIT or ROLLBACK shares it. A Session must not be
// used from multiple goroutines.
type Session struct {
	db  *DB
	txn *engine.Txn
}

// Exec parses and runs one statement.
//
// In auto-commit mode a failed statement is rolled back and leaves no
// trace. Inside an explicit transaction the error is returned but the
// transaction stays open; the client decides whether to roll back.
func (s *Session) Exec(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	switch stmt.(type) {
	case *parser.BeginStmt:
		return s.begin()
	case *parser.CommitStmt:
		return s.commit()
	case *parser.RollbackStmt:
		return s.rollback()
	}

	if s.txn != nil {
		return run(s.txn, stmt)
	}

	txn, err := s.db.eng.Begin()
	if err != nil {
		return nil, err
	}
	res, err := run(txn, stmt)
	if err != nil {
		txn.Rollback()
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close rolls back any transaction the client left open.
func (s *Session) Close() error {
	if s.txn == nil {
		return nil
	}
	txn := s.txn
	s.txn = nil
	return txn.Rollback()
}

// InTransaction reports whether an explicit transaction is open.
func (s *Session) InTransaction() bool { return s.txn != nil }

func run(txn *engine.Txn, stmt parser.Statement) (*Result, error) {
	t := execTxn{txn}
	p, err := planner.BuildPlan(stmt, t)
	if err != nil {
		return nil, err
	}
	return executor.NewExecutor(t).Execute(p)
}

func (s *Session) begin() (*Result, error) {
	if s.txn != nil {
		return nil, sqlerr.TransactionStatef("transaction %d already open", s.txn.ID())
	}
	txn, err := s.db.eng.Begin()
	if err != nil {
		return nil, err
	}
	s.txn = txn
	return &Result{Message: fmt.Sprintf("began transaction %d", txn.ID())}, nil
}

func (s *Session) commit() (*Result, error) {
	if s.txn == nil {
		return nil, sqlerr.TransactionStatef("no transaction is open")
	}
	id := s.txn.ID()
	err := s.txn.Commit()
	s.txn = nil
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("committed transaction %d", id)}, nil
}

func (s *Session) rollback() (*Result, error) {
	if s.txn == nil {
		return nil, sqlerr.TransactionStatef("no transaction is open")
	}
	id := s.txn.ID()
	err := s.txn.Rollback()
	s.txn = nil
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("rolled back transaction %d", id)}, nil
}

// execTxn adapts *engine.Txn to the executor's transaction interface.
// Only Scan needs help: the engine returns its concrete iterator.
type execTxn struct {
	*engine.Txn
}

var (
	_ executor.Txn    = execTxn{}
	_ planner.Catalog = execTxn{}
)

func (t execTxn) Scan(tbl *catalog.Table) (executor.RowIter, error) {
	return t.Txn.Scan(tbl)
}
