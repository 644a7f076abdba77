package ledger

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteCSV serialises an account ledger to CSV, one row per entry plus
// opening and closing summary rows.
func WriteCSV(w io.Writer, result AccountLedger) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	printer := message.NewPrinter(language.English)
	amount := func(v float64) string {
		return printer.Sprintf("%.2f", v)
	}

	if err := writer.Write([]string{"Date", "Journal Code", "Description", "Reference", "Debit", "Credit", "Balance"}); err != nil {
		return err
	}
	if err := writer.Write([]string{
		result.DateFrom.Format("2006-01-02"), "", "Opening Balance", "", "", "", amount(result.OpeningBalance),
	}); err != nil {
		return err
	}
	for _, entry := range result.Entries {
		if err := writer.Write([]string{
			entry.Date.Format("2006-01-02"),
			entry.JournalCode,
			entry.Description,
			entry.ReferenceCode,
			amount(entry.Debit),
			amount(entry.Credit),
			amount(entry.Balance),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{
		result.DateTo.Format("2006-01-02"), "", "Closing Balance", "", amount(result.TotalDebits), amount(result.TotalCredits), amount(result.ClosingBalance),
	}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
