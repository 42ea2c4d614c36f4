package closing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/velmie/tillsync"
)

// DateLayout is the layout of Closing.Date.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when Closing.Date is not a YYYY-MM-DD date.
var ErrInvalidDate = errors.New("tillsync closing: date must be YYYY-MM-DD")

// Denomination is a scratch-card face value.
type Denomination struct {
	Key   string
	Label string
	Value decimal.Decimal
}

// Denominations lists the scratch-card face values counted at closing.
var Denominations = []Denomination{
	{Key: "2.50", Label: "2,50", Value: decimal.RequireFromString("2.50")},
	{Key: "5.00", Label: "5,00", Value: decimal.RequireFromString("5.00")},
	{Key: "10.00", Label: "10,00", Value: decimal.RequireFromString("10.00")},
	{Key: "20.00", Label: "20,00", Value: decimal.RequireFromString("20.00")},
}

// Fixed inflow and outflow lines shown on every closing.
var (
	FixedInflowKeys  = []string{"Moeda", "Tarifa", "Bolão", "Mkt", "Telesena"}
	FixedOutflowKeys = []string{"Moeda", "Bolão", "Mkt", "Troca", "Raspinha"}
)

// NameValue is a named amount, such as a receivable or a pix transfer.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Operator identifies who closed the till.
type Operator struct {
	User  string `json:"user"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Closing is one day's till closing as filled in by the operator.
type Closing struct {
	Date     string    `json:"date"`
	Operator *Operator `json:"operator,omitempty"`

	Cash         []string          `json:"cash"`
	FixedInflow  map[string]string `json:"fixedInflow"`
	Receivables  []NameValue       `json:"receivables"`
	ScratchCards map[string]int    `json:"scratchCards"`

	Withdrawals  []string          `json:"withdrawals"`
	FixedOutflow map[string]string `json:"fixedOutflow"`
	Pix          []NameValue       `json:"pix"`
	Credit       []NameValue       `json:"credit"`
	OtherOutflow []NameValue       `json:"otherOutflow"`
}

// New returns a blank closing for day.
func New(day time.Time) Closing {
	c := Closing{
		Date:         day.Format(DateLayout),
		Cash:         []string{""},
		FixedInflow:  make(map[string]string, len(FixedInflowKeys)),
		Receivables:  []NameValue{{}},
		ScratchCards: make(map[string]int, len(Denominations)),
		Withdrawals:  []string{""},
		FixedOutflow: make(map[string]string, len(FixedOutflowKeys)),
		Pix:          []NameValue{{}},
		Credit:       []NameValue{{}},
		OtherOutflow: []NameValue{{}},
	}
	for _, k := range FixedInflowKeys {
		c.FixedInflow[k] = ""
	}
	for _, k := range FixedOutflowKeys {
		c.FixedOutflow[k] = ""
	}
	for _, d := range Denominations {
		c.ScratchCards[d.Key] = 0
	}

	return c
}

// Totals is the closing summary.
type Totals struct {
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
	Result  decimal.Decimal
}

// ScratchCardTotal is the value of the counted scratch cards. Unknown denominations are ignored.
func (c Closing) ScratchCardTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range Denominations {
		total = total.Add(d.Value.Mul(decimal.NewFromInt(int64(c.ScratchCards[d.Key]))))
	}

	return total
}

// Totals sums inflows and outflows.
func (c Closing) Totals() Totals {
	inflow := sumStrings(c.Cash).
		Add(sumMap(c.FixedInflow)).
		Add(sumNamed(c.Receivables)).
		Add(c.ScratchCardTotal())
	outflow := sumStrings(c.Withdrawals).
		Add(sumMap(c.FixedOutflow)).
		Add(sumNamed(c.Pix)).
		Add(sumNamed(c.Credit)).
		Add(sumNamed(c.OtherOutflow))

	return Totals{Inflow: inflow, Outflow: outflow, Result: inflow.Sub(outflow)}
}

// Validate checks the date.
func (c Closing) Validate() error {
	if _, err := time.Parse(DateLayout, c.Date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, c.Date)
	}

	return nil
}

type ledgerBody struct {
	Date     string    `json:"date"`
	Operator *Operator `json:"operator,omitempty"`
	Inflow   string    `json:"inflow"`
	Outflow  string    `json:"outflow"`
	Result   string    `json:"result"`
	Closing  Closing   `json:"closing"`
}

// Entry shapes the closing as an outbox entry for target. The body carries the
// totals as fixed two-decimal strings next to the full form.
func (c Closing) Entry(target tillsync.Target) (tillsync.Entry, error) {
	if err := c.Validate(); err != nil {
		return tillsync.Entry{}, err
	}

	totals := c.Totals()
	body, err := json.Marshal(ledgerBody{
		Date:     c.Date,
		Operator: c.Operator,
		Inflow:   totals.Inflow.StringFixed(2),
		Outflow:  totals.Outflow.StringFixed(2),
		Result:   totals.Result.StringFixed(2),
		Closing:  c,
	})
	if err != nil {
		return tillsync.Entry{}, fmt.Errorf("tillsync closing: encode: %w", err)
	}

	entry := tillsync.Entry{Target: target, Body: body}
	if err := entry.Validate(); err != nil {
		return tillsync.Entry{}, err
	}

	return entry, nil
}

func sumStrings(values []string) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(ParseAmount(v))
	}

	return total
}

func sumMap(values map[string]string) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(ParseAmount(v))
	}

	return total
}

func sumNamed(values []NameValue) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(ParseAmount(v.Value))
	}

	return total
}
