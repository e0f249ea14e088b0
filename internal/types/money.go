package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Currency is the single settlement currency of the ledger.
const Currency = "USD"

// MoneyScale is the number of fraction digits an amount may carry.
const MoneyScale = 2

// Money is a fixed-point monetary amount in Currency.
type Money struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money { return Money{value: d} }

// MoneyFromInt returns a whole amount of major units.
func MoneyFromInt(units int64) Money { return Money{value: decimal.NewFromInt(units)} }

// ParseMoney parses a decimal string such as "1500.00".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: malformed amount %q", ErrInvalidAmount, s)
	}
	m := Money{value: d}
	if !m.WithinScale() {
		return Money{}, fmt.Errorf("%w: %q has more than %d fraction digits", ErrInvalidAmount, s, MoneyScale)
	}
	return m, nil
}

// MustParseMoney is ParseMoney for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal        { return m.value }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) Add(n Money) Money               { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money               { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg()} }

// WithinScale reports whether m is representable in MoneyScale fraction digits.
// Only such amounts are stored without rounding.
func (m Money) WithinScale() bool { return m.value.Equal(m.value.Truncate(MoneyScale)) }

// Mul returns the amount for q units priced at m.
func (m Money) Mul(q Quantity) Money { return Money{value: m.value.Mul(decimal.NewFromInt(int64(q)))} }

// DivRound divides by q and rounds half away from zero to MoneyScale digits.
func (m Money) DivRound(q Quantity) Money {
	return Money{value: m.value.DivRound(decimal.NewFromInt(int64(q)), MoneyScale)}
}

// String renders the amount with two fraction digits, e.g. "1500.00".
func (m Money) String() string { return m.value.StringFixed(MoneyScale) }

// Display renders the amount with currency symbol and grouping, e.g. "$1,500.00".
func (m Money) Display() string {
	minor := m.value.Shift(MoneyScale).Round(0).IntPart()
	return money.New(minor, Currency).Display()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if !(Money{value: d}).WithinScale() {
		return fmt.Errorf("%w: %s has more than %d fraction digits", ErrInvalidAmount, d, MoneyScale)
	}
	m.value = d
	return nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src interface{}) error {
	return m.value.Scan(src)
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.value.StringFixed(MoneyScale), nil
}

// GormDBDataType stores amounts as exact numerics on postgres and as text on sqlite.
func (Money) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "numeric(20,2)"
	}
	return "text"
}

// Quantity is a whole number of shares.
type Quantity int64

func (q Quantity) IsPositive() bool { return q > 0 }
