package gdrive

import (
	"context"
	"fmt"
	"strings"

	"github.com/one-zero-eight/guard/internal/domain/models"
	"google.golang.org/api/sheets/v4"
)

const greetingTitle = "Hello from Guard"

// WriteGreetingSheet adds (or refreshes) an instructions tab on a protected
// spreadsheet: what the service is, how respondents join, and the join link
// itself. Purely cosmetic; callers treat failures as non-fatal.
func (c *Client) WriteGreetingSheet(ctx context.Context, spreadsheetID, joinLink string, role models.Role) (string, error) {
	meta, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).Do()
	if err != nil {
		return "", providerErr("get spreadsheet", err)
	}

	sheetID := int64(-1)
	for _, s := range meta.Sheets {
		if s.Properties.Title == greetingTitle {
			sheetID = s.Properties.SheetId
		}
	}

	if sheetID == -1 {
		resp, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: greetingTitle},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return "", providerErr("add greeting sheet", err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	lines := greetingLines(joinLink, role)
	values := make([][]interface{}, len(lines))
	for i, line := range lines {
		values[i] = []interface{}{line}
	}

	_, err = c.sheets.Spreadsheets.Values.Update(spreadsheetID,
		fmt.Sprintf("'%s'!A1", greetingTitle),
		&sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return "", providerErr("write greeting text", err)
	}

	if err := c.formatGreeting(ctx, spreadsheetID, sheetID); err != nil {
		return "", err
	}
	return greetingTitle, nil
}

func greetingLines(joinLink string, role models.Role) []string {
	return []string{
		"Guard access service",
		"",
		"This document is protected: access is granted only to verified members of the organization.",
		"",
		"To get access:",
		"  1. Open the join link below",
		"  2. Sign in with your organizational account",
		"  3. Connect the Google account you want to work under",
		"",
		"Join link:",
		joinLink,
		"",
		"Access level for respondents: " + strings.ToUpper(string(role)),
	}
}

// formatGreeting applies the header styling and widens column A so the
// instructions read as a page, not a data grid.
func (c *Client) formatGreeting(ctx context.Context, spreadsheetID string, sheetID int64) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor: &sheets.Color{Red: 0.26, Green: 0.52, Blue: 0.96},
						TextFormat: &sheets.TextFormat{
							ForegroundColor: &sheets.Color{Red: 1, Green: 1, Blue: 1},
							FontSize:        12,
							Bold:            true,
						},
						HorizontalAlignment: "CENTER",
						VerticalAlignment:   "MIDDLE",
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment,verticalAlignment)",
			},
		},
		{
			UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: 0,
					EndIndex:   1,
				},
				Properties: &sheets.DimensionProperties{PixelSize: 40},
				Fields:     "pixelSize",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 9, EndRowIndex: 11},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor: &sheets.Color{Red: 0.85, Green: 0.92, Blue: 0.83},
						TextFormat:      &sheets.TextFormat{FontSize: 11, Bold: true},
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat)",
			},
		},
		{
			UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   1,
				},
				Properties: &sheets.DimensionProperties{PixelSize: 900},
				Fields:     "pixelSize",
			},
		},
	}

	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return providerErr("format greeting sheet", err)
	}
	return nil
}
