package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidesql/tidesql/internal/sql/sqlerr"
)

func TestParseDataType(t *testing.T) {
	cases := map[string]DataType{
		"BOOL":    Boolean,
		"boolean": Boolean,
		"INT":     Integer,
		"Integer": Integer,
		"FLOAT":   Float,
		"double":  Float,
		"STRING":  String,
		"text":    String,
		"VARCHAR": String,
	}
	for name, want := range cases {
		got, ok := ParseDataType(name)
		assert.True(t, ok, "parse %s", name)
		assert.Equal(t, want, got, "parse %s", name)
	}

	_, ok := ParseDataType("BLOB")
	assert.False(t, ok)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NULL", NullValue().String())
	assert.Equal(t, "TRUE", BoolValue(true).String())
	assert.Equal(t, "FALSE", BoolValue(false).String())
	assert.Equal(t, "42", IntValue(42).String())
	assert.Equal(t, "-7", IntValue(-7).String())
	assert.Equal(t, "3.14", FloatValue(3.14).String())
	assert.Equal(t, "2", FloatValue(2.0).String())
	assert.Equal(t, "hello", StringValue("hello").String())
}

func TestEqual(t *testing.T) {
	eq, err := Equal(IntValue(1), IntValue(1))
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = Equal(IntValue(1), IntValue(2))
	require.NoError(t, err)
	assert.False(t, eq)

	eq, err = Equal(StringValue("a"), StringValue("a"))
	require.NoError(t, err)
	assert.True(t, eq)

	// NULL equals nothing, not even NULL.
	eq, err = Equal(NullValue(), NullValue())
	require.NoError(t, err)
	assert.False(t, eq)

	eq, err = Equal(NullValue(), IntValue(1))
	require.NoError(t, err)
	assert.False(t, eq)

	_, err = Equal(IntValue(1), StringValue("1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sqlerr.ErrTypeMismatch))
}

func TestCompare(t *testing.T) {
	c, err := Compare(IntValue(1), IntValue(2))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare(FloatValue(2.5), FloatValue(2.5))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = Compare(StringValue("b"), StringValue("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare(BoolValue(false), BoolValue(true))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = Compare(NullValue(), IntValue(1))
	require.Error(t, err)

	_, err = Compare(IntValue(1), FloatValue(1.0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sqlerr.ErrTypeMismatch))
}

func TestValueJSONRoundTrip(t *testing.T) {
	values := []Value{
		NullValue(),
		BoolValue(true),
		IntValue(-99),
		FloatValue(1.5),
		StringValue("it's"),
	}
	for _, v := range values {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var got Value
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, v, got)
	}
}

func TestValueJSONKeepsIntegerFloatApart(t *testing.T) {
	data, err := json.Marshal(IntValue(2))
	require.NoError(t, err)

	var got Value
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, KindInteger, got.Kind)

	data, err = json.Marshal(FloatValue(2))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, KindFloat, got.Kind)
}

func TestRowClone(t *testing.T) {
	r := Row{IntValue(1), StringValue("x")}
	c := r.Clone()
	c[0] = IntValue(9)
	assert.Equal(t, IntValue(1), r[0])
	assert.Equal(t, IntValue(9), c[0])
}
