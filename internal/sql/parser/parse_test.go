package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidesql/tidesql/internal/sql/sqlerr"
	"github.com/tidesql/tidesql/internal/sql/types"
)

func TestParse_CreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE Users (id INT NOT NULL, name TEXT, score FLOAT DEFAULT 1.5, ok BOOL DEFAULT true INDEX);")
	require.NoError(t, err)

	s, ok := stmt.(*CreateTableStmt)
	require.True(t, ok, "want *CreateTableStmt, got %T", stmt)

	require.Equal(t, "users", s.TableName)
	require.Len(t, s.Columns, 4)

	assert.Equal(t, ColumnDef{Name: "id", Type: types.Integer, NotNull: true}, s.Columns[0])
	assert.Equal(t, ColumnDef{Name: "name", Type: types.String}, s.Columns[1])

	assert.Equal(t, "score", s.Columns[2].Name)
	assert.Equal(t, types.Float, s.Columns[2].Type)
	require.NotNil(t, s.Columns[2].Default)
	assert.Equal(t, types.FloatValue(1.5), s.Columns[2].Default.(*LiteralExpr).Value)

	assert.True(t, s.Columns[3].Indexed)
	assert.Equal(t, types.BoolValue(true), s.Columns[3].Default.(*LiteralExpr).Value)
}

func TestParse_CreateTable_TypeAliases(t *testing.T) {
	stmt, err := Parse("CREATE TABLE t (a BOOLEAN, b DOUBLE, c INTEGER, d VARCHAR, e STRING)")
	require.NoError(t, err)

	s := stmt.(*CreateTableStmt)
	want := []types.DataType{types.Boolean, types.Float, types.Integer, types.String, types.String}
	for i, dt := range want {
		assert.Equal(t, dt, s.Columns[i].Type, "column %d", i)
	}
}

func TestParse_CreateTable_UnknownType(t *testing.T) {
	_, err := Parse("CREATE TABLE t (a BLOB)")
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlerr.ErrSyntax)
}

func TestParse_CreateTable_PrimaryKeyUnsupported(t *testing.T) {
	_, err := Parse("CREATE TABLE t (id INT PRIMARY KEY)")
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlerr.ErrUnsupported)
}

func TestParse_CreateTable_DefaultNull(t *testing.T) {
	stmt, err := Parse("CREATE TABLE t (a INT DEFAULT NULL)")
	require.NoError(t, err)

	s := stmt.(*CreateTableStmt)
	require.NotNil(t, s.Columns[0].Default)
	assert.True(t, s.Columns[0].Default.(*LiteralExpr).Value.IsNull())
}

func TestParse_CreateIndexUnsupported(t *testing.T) {
	_, err := Parse("CREATE INDEX idx ON t (a)")
	assert.ErrorIs(t, err, sqlerr.ErrUnsupported)
}

func TestParse_DropTable(t *testing.T) {
	stmt, err := Parse("DROP TABLE users;")
	require.NoError(t, err)

	s, ok := stmt.(*DropTableStmt)
	require.True(t, ok, "want *DropTableStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
}

func TestParse_ShowTables(t *testing.T) {
	stmt, err := Parse("SHOW TABLES")
	require.NoError(t, err)
	_, ok := stmt.(*ShowTablesStmt)
	require.True(t, ok, "want *ShowTablesStmt, got %T", stmt)

	stmt, err = Parse("SHOW TABLE users")
	require.NoError(t, err)
	s, ok := stmt.(*ShowTableStmt)
	require.True(t, ok, "want *ShowTableStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
}

func TestParse_TransactionControl(t *testing.T) {
	stmt, err := Parse("BEGIN;")
	require.NoError(t, err)
	_, ok := stmt.(*BeginStmt)
	require.True(t, ok, "want *BeginStmt, got %T", stmt)

	stmt, err = Parse("COMMIT")
	require.NoError(t, err)
	_, ok = stmt.(*CommitStmt)
	require.True(t, ok, "want *CommitStmt, got %T", stmt)

	stmt, err = Parse("rollback;")
	require.NoError(t, err)
	_, ok = stmt.(*RollbackStmt)
	require.True(t, ok, "want *RollbackStmt, got %T", stmt)
}

func TestParse_Explain(t *testing.T) {
	stmt, err := Parse("EXPLAIN SELECT * FROM t")
	require.NoError(t, err)

	s, ok := stmt.(*ExplainStmt)
	require.True(t, ok, "want *ExplainStmt, got %T", stmt)
	_, ok = s.Stmt.(*SelectStmt)
	require.True(t, ok, "want inner *SelectStmt, got %T", s.Stmt)
}

func TestParse_Insert(t *testing.T) {
	stmt, err := Parse("INSERT INTO users VALUES (1, 'abc', true, NULL);")
	require.NoError(t, err)

	s, ok := stmt.(*InsertStmt)
	require.True(t, ok, "want *InsertStmt, got %T", stmt)

	assert.Equal(t, "users", s.TableName)
	assert.Empty(t, s.Columns)
	require.Len(t, s.Rows, 1)
	require.Len(t, s.Rows[0], 4)

	want := []types.Value{
		types.IntValue(1),
		types.StringValue("abc"),
		types.BoolValue(true),
		types.NullValue(),
	}
	for i, w := range want {
		lit, ok := s.Rows[0][i].(*LiteralExpr)
		require.True(t, ok, "value[%d]: want *LiteralExpr, got %T", i, s.Rows[0][i])
		assert.Equal(t, w, lit.Value, "value[%d]", i)
	}
}

func TestParse_Insert_MultiRow(t *testing.T) {
	stmt, err := Parse("INSERT INTO t (a, b) VALUES (1, 'x'), (2, 'y');")
	require.NoError(t, err)

	s := stmt.(*InsertStmt)
	assert.Equal(t, []string{"a", "b"}, s.Columns)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, types.IntValue(2), s.Rows[1][0].(*LiteralExpr).Value)
}

func TestParse_Insert_QuoteEscape(t *testing.T) {
	stmt, err := Parse("INSERT INTO t VALUES ('it''s', 'a,b');")
	require.NoError(t, err)

	s := stmt.(*InsertStmt)
	assert.Equal(t, types.StringValue("it's"), s.Rows[0][0].(*LiteralExpr).Value)
	assert.Equal(t, types.StringValue("a,b"), s.Rows[0][1].(*LiteralExpr).Value)
}

func TestParse_Insert_RejectsNonConstant(t *testing.T) {
	_, err := Parse("INSERT INTO t VALUES (other_col);")
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlerr.ErrSyntax)
}

func TestParse_ConstantFolding(t *testing.T) {
	stmt, err := Parse("INSERT INTO t VALUES (2 + 3, 10 / 4, 2 * (1 + 1));")
	require.NoError(t, err)

	s := stmt.(*InsertStmt)
	assert.Equal(t, types.FloatValue(5), s.Rows[0][0].(*LiteralExpr).Value)
	assert.Equal(t, types.FloatValue(2.5), s.Rows[0][1].(*LiteralExpr).Value)
	assert.Equal(t, types.FloatValue(4), s.Rows[0][2].(*LiteralExpr).Value)
}

func TestParse_DivisionByZero(t *testing.T) {
	_, err := Parse("INSERT INTO t VALUES (1 / 0);")
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlerr.ErrDivision)
}

func TestParse_ArithmeticTypeMismatch(t *testing.T) {
	_, err := Parse("INSERT INTO t VALUES ('a' + 1);")
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlerr.ErrTypeMismatch)
}

func TestParse_NegativeNumbers(t *testing.T) {
	stmt, err := Parse("INSERT INTO t VALUES (-7, -1.5);")
	require.NoError(t, err)

	s := stmt.(*InsertStmt)
	assert.Equal(t, types.IntValue(-7), s.Rows[0][0].(*LiteralExpr).Value)
	assert.Equal(t, types.FloatValue(-1.5), s.Rows[0][1].(*LiteralExpr).Value)
}

func TestParse_Select_Star(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users;")
	require.NoError(t, err)

	s, ok := stmt.(*SelectStmt)
	require.True(t, ok, "want *SelectStmt, got %T", stmt)

	require.Len(t, s.Items, 1)
	assert.True(t, s.Items[0].Star)
	assert.Equal(t, "users", s.From.Table)
	assert.Equal(t, JoinNone, s.From.Join)
	assert.Nil(t, s.Where)
}

func TestParse_Select_ColumnsAndAliases(t *testing.T) {
	stmt, err := Parse("SELECT id, Name AS n, count(*) AS total, sum(score) FROM users")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	require.Len(t, s.Items, 4)

	assert.Equal(t, &ColumnExpr{Name: "id"}, s.Items[0].Expr)
	assert.Equal(t, &ColumnExpr{Name: "name"}, s.Items[1].Expr)
	assert.Equal(t, "n", s.Items[1].Alias)

	agg := s.Items[2].Expr.(*AggregateExpr)
	assert.Equal(t, "count", agg.Func)
	assert.True(t, agg.Star)
	assert.Equal(t, "total", s.Items[2].Alias)

	agg = s.Items[3].Expr.(*AggregateExpr)
	assert.Equal(t, "sum", agg.Func)
	assert.Equal(t, &ColumnExpr{Name: "score"}, agg.Column)
}

func TestParse_Select_QualifiedColumns(t *testing.T) {
	stmt, err := Parse("SELECT users.id FROM users")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	assert.Equal(t, &ColumnExpr{Table: "users", Name: "id"}, s.Items[0].Expr)
}

func TestParse_Select_Where(t *testing.T) {
	for _, tc := range []struct {
		sql string
		op  CompareOp
	}{
		{"SELECT * FROM t WHERE a = 1", CompareEq},
		{"SELECT * FROM t WHERE a < 1", CompareLt},
		{"SELECT * FROM t WHERE a > 1", CompareGt},
	} {
		stmt, err := Parse(tc.sql)
		require.NoError(t, err, tc.sql)
		s := stmt.(*SelectStmt)
		require.NotNil(t, s.Where, tc.sql)
		assert.Equal(t, tc.op, s.Where.Op, tc.sql)
		assert.Equal(t, &ColumnExpr{Name: "a"}, s.Where.Left, tc.sql)
	}
}

func TestParse_Select_UnsupportedPredicates(t *testing.T) {
	for _, sql := range []string{
		"SELECT * FROM t WHERE a != 1",
		"SELECT * FROM t WHERE a <= 1",
		"SELECT * FROM t WHERE a >= 1",
		"SELECT * FROM t WHERE a = 1 AND b = 2",
		"SELECT * FROM t WHERE a = 1 OR b = 2",
	} {
		_, err := Parse(sql)
		require.Error(t, err, sql)
		assert.ErrorIs(t, err, sqlerr.ErrUnsupported, sql)
	}
}

func TestParse_Select_Joins(t *testing.T) {
	for _, tc := range []struct {
		sql  string
		kind JoinKind
	}{
		{"SELECT * FROM a JOIN b ON a.x = b.y", JoinInner},
		{"SELECT * FROM a INNER JOIN b ON a.x = b.y", JoinInner},
		{"SELECT * FROM a LEFT JOIN b ON a.x = b.y", JoinLeft},
		{"SELECT * FROM a LEFT OUTER JOIN b ON a.x = b.y", JoinLeft},
		{"SELECT * FROM a RIGHT JOIN b ON a.x = b.y", JoinRight},
	} {
		stmt, err := Parse(tc.sql)
		require.NoError(t, err, tc.sql)
		s := stmt.(*SelectStmt)
		assert.Equal(t, tc.kind, s.From.Join, tc.sql)
		assert.Equal(t, "b", s.From.JoinTable, tc.sql)
		require.NotNil(t, s.From.On, tc.sql)
		assert.Equal(t, &ColumnExpr{Table: "a", Name: "x"}, s.From.On.Left, tc.sql)
		assert.Equal(t, &ColumnExpr{Table: "b", Name: "y"}, s.From.On.Right, tc.sql)
	}
}

func TestParse_Select_CrossJoin(t *testing.T) {
	stmt, err := Parse("SELECT * FROM a CROSS JOIN b")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	assert.Equal(t, JoinCross, s.From.Join)
	assert.Nil(t, s.From.On)
}

func TestParse_Select_MultipleJoinsUnsupported(t *testing.T) {
	_, err := Parse("SELECT * FROM a JOIN b ON a.x = b.x JOIN c ON b.y = c.y")
	assert.ErrorIs(t, err, sqlerr.ErrUnsupported)
}

func TestParse_Select_JoinOnRequiresEquality(t *testing.T) {
	_, err := Parse("SELECT * FROM a JOIN b ON a.x > b.y")
	assert.ErrorIs(t, err, sqlerr.ErrUnsupported)
}

func TestParse_Select_JoinOnRequiresColumns(t *testing.T) {
	_, err := Parse("SELECT * FROM a JOIN b ON a.x = 1")
	assert.ErrorIs(t, err, sqlerr.ErrSyntax)
}

func TestParse_Select_GroupByHaving(t *testing.T) {
	stmt, err := Parse("SELECT g, sum(v) FROM t GROUP BY g HAVING sum(v) > 4")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	assert.Equal(t, "g", s.GroupBy)
	require.NotNil(t, s.Having)
	assert.Equal(t, CompareGt, s.Having.Op)
	agg := s.Having.Left.(*AggregateExpr)
	assert.Equal(t, "sum", agg.Func)
}

func TestParse_Select_GroupByMultipleUnsupported(t *testing.T) {
	_, err := Parse("SELECT a, b FROM t GROUP BY a, b")
	assert.ErrorIs(t, err, sqlerr.ErrUnsupported)
}

func TestParse_Select_OrderLimitOffset(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t ORDER BY a DESC, b LIMIT 1 OFFSET 1")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	require.Len(t, s.OrderBy, 2)
	assert.Equal(t, &ColumnExpr{Name: "a"}, s.OrderBy[0].Column)
	assert.True(t, s.OrderBy[0].Desc)
	assert.Equal(t, &ColumnExpr{Name: "b"}, s.OrderBy[1].Column)
	assert.False(t, s.OrderBy[1].Desc)

	assert.Equal(t, types.IntValue(1), s.Limit.(*LiteralExpr).Value)
	assert.Equal(t, types.IntValue(1), s.Offset.(*LiteralExpr).Value)
}

func TestParse_Select_NegativeLimit(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t LIMIT -1")
	require.NoError(t, err)

	s := stmt.(*SelectStmt)
	assert.Equal(t, types.IntValue(-1), s.Limit.(*LiteralExpr).Value)
}

func TestParse_Select_UnknownFunction(t *testing.T) {
	_, err := Parse("SELECT stddev(a) FROM t")
	assert.ErrorIs(t, err, sqlerr.ErrUnsupported)
}

func TestParse_Select_StarOnlyForCount(t *testing.T) {
	_, err := Parse("SELECT sum(*) FROM t")
	assert.ErrorIs(t, err, sqlerr.ErrUnsupported)
}

func TestParse_Update(t *testing.T) {
	stmt, err := Parse("UPDATE users SET name = 'x', score = 2 WHERE id = 1;")
	require.NoError(t, err)

	s, ok := stmt.(*UpdateStmt)
	require.True(t, ok, "want *UpdateStmt, got %T", stmt)

	assert.Equal(t, "users", s.TableName)
	require.Len(t, s.Set, 2)
	assert.Equal(t, "name", s.Set[0].Column)
	assert.Equal(t, "score", s.Set[1].Column)

	require.NotNil(t, s.Where)
	assert.Equal(t, &ColumnExpr{Name: "id"}, s.Where.Left)
	assert.Equal(t, types.IntValue(1), s.Where.Right.(*LiteralExpr).Value)
}

func TestParse_Update_NoWhere(t *testing.T) {
	stmt, err := Parse("UPDATE users SET score = 0")
	require.NoError(t, err)
	assert.Nil(t, stmt.(*UpdateStmt).Where)
}

func TestParse_Update_RangeWhereUnsupported(t *testing.T) {
	_, err := Parse("UPDATE users SET score = 0 WHERE id > 1")
	assert.ErrorIs(t, err, sqlerr.ErrUnsupported)
}

func TestParse_Delete(t *testing.T) {
	stmt, err := Parse("DELETE FROM users WHERE id = 1;")
	require.NoError(t, err)

	s, ok := stmt.(*DeleteStmt)
	require.True(t, ok, "want *DeleteStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
	require.NotNil(t, s.Where)
}

func TestParse_Delete_RangeWhereUnsupported(t *testing.T) {
	_, err := Parse("DELETE FROM users WHERE id < 5")
	assert.ErrorIs(t, err, sqlerr.ErrUnsupported)
}

func TestParse_LineComments(t *testing.T) {
	stmt, err := Parse("SELECT a -- trailing words\nFROM t -- more\n;")
	require.NoError(t, err)
	_, ok := stmt.(*SelectStmt)
	require.True(t, ok, "want *SelectStmt, got %T", stmt)
}

func TestParse_Errors(t *testing.T) {
	for _, sql := range []string{
		"",
		";",
		"SELECT",
		"SELECT * users",
		"SELEC * FROM users",
		"INSERT INTO VALUES (1)",
		"CREATE TABLE t ()",
		"SELECT * FROM t extra",
		"INSERT INTO t VALUES ('unterminated)",
	} {
		_, err := Parse(sql)
		require.Error(t, err, "sql: %q", sql)
		assert.ErrorIs(t, err, sqlerr.ErrSyntax, "sql: %q", sql)
	}
}

func TestParse_ErrorCarriesPosition(t *testing.T) {
	_, err := Parse("SELECT *\nFROM t WHERE ?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
