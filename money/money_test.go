package money_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestFromString_ValidAmounts(t *testing.T) {
	// GIVEN: well-formed decimal strings
	// WHEN: parsing them
	// THEN: values round-trip at exactly two decimal places

	cases := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"150", "150.00"},
		{"150.5", "150.50"},
		{"-20.25", "-20.25"},
		{"0.01", "0.01"},
	}
	for _, c := range cases {
		m, err := money.FromString(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, m.String())
	}
}

func TestFromString_RejectsSubCentPrecision(t *testing.T) {
	// GIVEN: an amount with more than two fractional digits
	// WHEN: parsing it
	// THEN: it is rejected, never silently rounded

	_, err := money.FromString("10.999")
	assert.Error(t, err)

	var invalid *money.InvalidAmountError
	assert.ErrorAs(t, err, &invalid)
}

func TestFromString_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "10,50", "1e5x"} {
		_, err := money.FromString(in)
		assert.Error(t, err, in)
	}
}

func TestFromFloat_RejectsNaNAndInf(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	_, err := money.FromFloat(nan)
	assert.Error(t, err)
}

func TestFromFloat_RejectsSubCentPrecision(t *testing.T) {
	// The classic: 0.1 + 0.2 in binary floats. Rejected, never rounded.
	_, err := money.FromFloat(0.1 + 0.2)
	assert.Error(t, err)

	m, err := money.FromFloat(120.50)
	require.NoError(t, err)
	assert.Equal(t, "120.50", m.String())
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func TestArithmetic_IsExact(t *testing.T) {
	// GIVEN: amounts that misbehave under binary floats
	// WHEN: adding and subtracting them
	// THEN: results are exact

	a := money.MustParse("0.10")
	b := money.MustParse("0.20")
	assert.True(t, a.Add(b).Equal(money.MustParse("0.30")))

	total := money.Zero()
	cent := money.MustParse("0.01")
	for i := 0; i < 100; i++ {
		total = total.Add(cent)
	}
	assert.Equal(t, "1.00", total.String())
}

func TestMulRate_RoundsHalfUp(t *testing.T) {
	// GIVEN: a 2.5% commission on 100.10
	// WHEN: computing amount * rate
	// THEN: 2.5025 rounds half-up to 2.50, and 100.30*2.5% = 2.5075 -> 2.51

	rate := money.MustParse("2.50")
	assert.Equal(t, "2.50", money.MustParse("100.10").MulRate(rate).String())
	assert.Equal(t, "2.51", money.MustParse("100.30").MulRate(rate).String())
}

func TestMin(t *testing.T) {
	a := money.MustParse("5.00")
	b := money.MustParse("3.00")
	assert.True(t, a.Min(b).Equal(b))
	assert.True(t, b.Min(a).Equal(b))
}

func TestComparisons(t *testing.T) {
	a := money.MustParse("1.00")
	b := money.MustParse("2.00")

	assert.True(t, a.LessThan(b))
	assert.True(t, b.GreaterThan(a))
	assert.True(t, a.IsPositive())
	assert.True(t, a.Neg().IsNegative())
	assert.True(t, money.Zero().IsZero())
	assert.True(t, a.Sub(a).IsZero())
}

// =============================================================================
// JSON
// =============================================================================

func TestJSON_MarshalsAsFixedString(t *testing.T) {
	data, err := json.Marshal(money.MustParse("150.50"))
	require.NoError(t, err)
	assert.Equal(t, `"150.50"`, string(data))
}

func TestJSON_UnmarshalAcceptsQuotedAndBare(t *testing.T) {
	var m money.Money
	require.NoError(t, json.Unmarshal([]byte(`"12.34"`), &m))
	assert.Equal(t, "12.34", m.String())

	require.NoError(t, json.Unmarshal([]byte(`12.34`), &m))
	assert.Equal(t, "12.34", m.String())

	assert.Error(t, json.Unmarshal([]byte(`"12.345"`), &m))
}
