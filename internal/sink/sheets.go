package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const valueInputRaw = "RAW"

// SheetsBackend is a Backend on the Google Sheets API.
type SheetsBackend struct {
	name string
	svc  *sheets.Service
}

// NewSheetsBackend authenticates with a service-account key file. ctx must
// outlive the backend; it scopes token refreshes.
func NewSheetsBackend(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*SheetsBackend, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading sink credential %s: %w", credentialsFile, err)
	}
	jwt, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing sink credential %s: %w", credentialsFile, err)
	}
	base := []option.ClientOption{option.WithTokenSource(jwt.TokenSource(ctx))}
	svc, err := sheets.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return NewSheetsBackendWithService(filepath.Base(credentialsFile), svc), nil
}

// NewSheetsBackendWithService wraps an existing service.
func NewSheetsBackendWithService(name string, svc *sheets.Service) *SheetsBackend {
	return &SheetsBackend{name: name, svc: svc}
}

// NewSheetsBackends builds one backend per credential file, in order.
func NewSheetsBackends(ctx context.Context, files []string, opts ...option.ClientOption) ([]Backend, error) {
	out := make([]Backend, 0, len(files))
	for _, f := range files {
		b, err := NewSheetsBackend(ctx, f, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Name returns the credential file name.
func (b *SheetsBackend) Name() string { return b.name }

// EnsureWorksheet adds the worksheet unless it already exists.
func (b *SheetsBackend) EnsureWorksheet(ctx context.Context, spreadsheetID, worksheet string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: worksheet},
			},
		}},
	}
	_, err := b.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil && !alreadyExists(err) {
		return fmt.Errorf("adding worksheet %q: %w", worksheet, err)
	}
	return nil
}

// Clear removes every value in the worksheet.
func (b *SheetsBackend) Clear(ctx context.Context, spreadsheetID, worksheet string) error {
	_, err := b.svc.Spreadsheets.Values.Clear(spreadsheetID, quoteSheet(worksheet), &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing worksheet %q: %w", worksheet, err)
	}
	return nil
}

// Update writes rows at A<startRow>.
func (b *SheetsBackend) Update(ctx context.Context, spreadsheetID, worksheet string, startRow int, rows [][]string) error {
	values := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = c
		}
		values[i] = cells
	}
	rng := fmt.Sprintf("%s!A%d", quoteSheet(worksheet), startRow)
	_, err := b.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(valueInputRaw).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("updating %s: %w", rng, err)
	}
	return nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return strings.Contains(strings.ToLower(gerr.Message), "already exists")
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
