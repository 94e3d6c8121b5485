package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericConversion(t *testing.T) {
	for _, s := range []string{"0", "12.5", "1000000.01", "-3.25"} {
		n, err := decimalToPgNumeric(decimal.RequireFromString(s))
		require.NoError(t, err)
		assert.True(t, pgNumericToDecimal(n).Equal(decimal.RequireFromString(s)), s)
	}
}

func TestNumericNull(t *testing.T) {
	assert.True(t, pgNumericToDecimal(pgtype.Numeric{}).IsZero())
	assert.Nil(t, pgNumericToDecimalPtr(pgtype.Numeric{}))

	n, err := decimalToPgNumeric(decimal.Zero)
	require.NoError(t, err)
	p := pgNumericToDecimalPtr(n)
	require.NotNil(t, p)
	assert.True(t, p.IsZero())
}

func TestNullableString(t *testing.T) {
	assert.Nil(t, nullableString(""))
	require.NotNil(t, nullableString("x"))
	assert.Equal(t, "x", *nullableString("x"))
}
