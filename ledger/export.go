/*
export.go - CSV export of a document view

PURPOSE:
  Writes a filtered/sorted view as CSV in the exact column layout the
  export consumers rely on. Row order follows the given slice, so callers
  export exactly what they see.
*/
package ledger

import (
	"encoding/csv"
	"io"
)

// csvHeader is a stable contract; consumers parse exports by column name.
var csvHeader = []string{
	"Invoice Number", "Customer", "Issue Date", "Due Date",
	"Status", "Total Amount", "Paid Amount", "Balance",
}

const csvDateFormat = "1/2/2006"

// WriteCSV writes docs to w, one row per document, in the given order.
func WriteCSV(w io.Writer, docs []*Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range docs {
		row := []string{
			d.DocumentNumber,
			d.CounterpartyName,
			d.IssueDate.Format(csvDateFormat),
			d.DueDate.Format(csvDateFormat),
			string(d.Status),
			d.TotalAmount.StringFixed(2),
			d.PaidAmount.StringFixed(2),
			d.BalanceAmount.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
