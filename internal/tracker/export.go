package tracker

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

var exportHeader = []string{"Date", "Description", "Category", "Type", "Amount"}

func (s *Service) ExportCSV(ctx context.Context, userID string, w io.Writer) error {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		s.storeError("list_transactions", userID, err)
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		record := []string{tx.Date, tx.Description, tx.Category, string(tx.Type), tx.Amount.String()}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
