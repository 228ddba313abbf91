package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/supplychain/internal/config"
)

// RowAppender appends rows at the end of a ledger sheet.
type RowAppender interface {
	AppendRows(ctx context.Context, rows [][]interface{}) error
}

// LedgerSheet is the stock ledger tab of a spreadsheet.
type LedgerSheet struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	sheetRange    string
	logger        *zap.Logger
}

// NewLedgerSheet connects to the spreadsheet configured in cfg using a service
// account credentials file.
func NewLedgerSheet(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*LedgerSheet, error) {
	return newLedgerSheet(ctx, cfg.SpreadsheetID, cfg.LedgerRange, logger,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
}

func newLedgerSheet(ctx context.Context, spreadsheetID, sheetRange string, logger *zap.Logger, opts ...option.ClientOption) (*LedgerSheet, error) {
	if spreadsheetID == "" {
		return nil, errors.New("ledger spreadsheet id must not be empty")
	}
	if sheetRange == "" {
		return nil, errors.New("ledger range must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &LedgerSheet{
		values:        service.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		sheetRange:    sheetRange,
		logger:        logger,
	}, nil
}

// EnsureHeader writes the column titles into the first row of the ledger range
// when that row is empty.
func (l *LedgerSheet) EnsureHeader(ctx context.Context) error {
	target := headerRange(l.sheetRange)

	resp, err := l.values.Get(l.spreadsheetID, target).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read ledger header %s: %w", target, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]interface{}, len(ledgerColumns))
	for i, c := range ledgerColumns {
		header[i] = c
	}
	_, err = l.values.Update(l.spreadsheetID, target, &sheetsapi.ValueRange{Values: [][]interface{}{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write ledger header %s: %w", target, err)
	}

	l.logger.Info("ledger sheet header written", zap.String("range", target))
	return nil
}

// AppendRows adds rows below the last ledger row. Values are stored as sent.
func (l *LedgerSheet) AppendRows(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	_, err := l.values.Append(l.spreadsheetID, l.sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %d ledger rows into %s: %w", len(rows), l.sheetRange, err)
	}

	l.logger.Debug("ledger rows appended", zap.String("range", l.sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// headerRange turns a column range such as "Ledger!A:K" into its first row,
// "Ledger!A1:K1". Ranges that already name rows are returned unchanged.
func headerRange(sheetRange string) string {
	sheet, cols, found := strings.Cut(sheetRange, "!")
	if !found {
		sheet, cols = "", sheetRange
	}
	from, to, ok := strings.Cut(cols, ":")
	if !ok || !isColumn(from) || !isColumn(to) {
		return sheetRange
	}
	first := from + "1:" + to + "1"
	if sheet == "" {
		return first
	}
	return sheet + "!" + first
}

func isColumn(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
