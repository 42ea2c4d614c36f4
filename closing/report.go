package closing

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// WriteCSV writes the semicolon-separated closing report mailed to the back office.
func (c Closing) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	var rows [][]string
	row := func(cells ...string) {
		rows = append(rows, cells)
	}

	row("Fechamento de Caixa", c.Date)
	if c.Operator != nil {
		row("Caixa", fmt.Sprintf("%s (%s)", c.Operator.Name, c.Operator.User))
		row("Email", c.Operator.Email)
	}
	row("")

	row("ENTRADA")
	for i, v := range c.Cash {
		row(fmt.Sprintf("Dinheiro %d", i+1), FormatAmount(ParseAmount(v)))
	}
	for _, k := range FixedInflowKeys {
		row(k, FormatAmount(ParseAmount(c.FixedInflow[k])))
	}
	for _, d := range Denominations {
		qty := c.ScratchCards[d.Key]
		row(fmt.Sprintf("Raspinha %s (qtd)", d.Label), strconv.Itoa(qty))
		row(fmt.Sprintf("Raspinha %s (total)", d.Label), FormatAmount(d.Value.Mul(decimal.NewFromInt(int64(qty)))))
	}
	namedRows(row, "Recebimento", c.Receivables)

	row("")
	row("SAÍDA")
	for i, v := range c.Withdrawals {
		row(fmt.Sprintf("Retirada %d", i+1), FormatAmount(ParseAmount(v)))
	}
	for _, k := range FixedOutflowKeys {
		row(k, FormatAmount(ParseAmount(c.FixedOutflow[k])))
	}
	namedRows(row, "Pix", c.Pix)
	namedRows(row, "Fiado", c.Credit)
	namedRows(row, "Outros", c.OtherOutflow)

	totals := c.Totals()
	row("")
	row("Total Entrada", FormatAmount(totals.Inflow))
	row("Total Saída", FormatAmount(totals.Outflow))
	row("RESULTADO", FormatAmount(totals.Result))

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("tillsync closing: write report: %w", err)
	}

	return nil
}

func namedRows(row func(...string), prefix string, values []NameValue) {
	for i, v := range values {
		label := fmt.Sprintf("%s %d", prefix, i+1)
		if v.Name != "" {
			label += " - " + v.Name
		}
		row(label, FormatAmount(ParseAmount(v.Value)))
	}
}
