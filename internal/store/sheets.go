package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsGroup is one Google spreadsheet; each Sheet is a tab.
type SheetsGroup struct {
	svc *sheets.Service
	id  string
}

func OpenSheets(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsGroup, error) {
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "create sheets service")
	}
	return &SheetsGroup{svc: svc, id: spreadsheetID}, nil
}

func (g *SheetsGroup) Sheet(name string) Sheet {
	return &gSheet{svc: g.svc, id: g.id, tab: name}
}

func (g *SheetsGroup) Close() error { return nil }

type gSheet struct {
	svc *sheets.Service
	id  string
	tab string
}

func (s *gSheet) ReadAll(ctx context.Context) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.id, s.tab).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		out = append(out, cells)
	}
	return out, nil
}

// AppendRows sends all rows in one values.append call.
func (s *gSheet) AppendRows(ctx context.Context, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		cells := make([]interface{}, len(r))
		for j, c := range r {
			cells[j] = c
		}
		values[i] = cells
	}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.id, s.tab, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
