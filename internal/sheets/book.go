// Package sheets keeps the task book in a Google Sheets spreadsheet.
//
// Each group has its own sheet. Row 1 holds day labels, column A holds
// employee names and every other cell holds one day's tasks for one
// employee, one task per line, coloured by status.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/fentz26/taskboard/internal/models"
)

// ErrSheetNotFound is returned when a group's sheet is missing from the spreadsheet.
var ErrSheetNotFound = errors.New("sheet not found")

const gridFields = "sheets(properties(sheetId,title,gridProperties(rowCount,columnCount))," +
	"data(rowData(values(userEnteredValue,formattedValue,textFormatRuns,userEnteredFormat(textFormat(foregroundColor))))))"

const metaFields = "sheets(properties(sheetId,title,gridProperties(rowCount,columnCount)))"

// Config locates the spreadsheet and names each group's sheet.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	Titles          map[models.Group]string
}

// Book reads and writes task sets in a spreadsheet.
type Book struct {
	svc    *sheets.Service
	id     string
	titles map[models.Group]string
	logger *slog.Logger
}

// New authenticates with a service-account key file and returns a Book.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Book, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return NewWithService(svc, cfg, logger)
}

// NewWithService returns a Book using an existing Sheets client.
func NewWithService(svc *sheets.Service, cfg Config, logger *slog.Logger) (*Book, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	titles := map[models.Group]string{}
	for _, g := range models.Groups {
		titles[g] = string(g)
	}
	for g, t := range cfg.Titles {
		if strings.TrimSpace(t) != "" {
			titles[g] = t
		}
	}
	return &Book{svc: svc, id: cfg.SpreadsheetID, titles: titles, logger: logger}, nil
}

// Ping checks the spreadsheet is reachable.
func (b *Book) Ping(ctx context.Context) error {
	_, err := b.sheetsByGroup(ctx)
	return err
}

// sheetsByGroup resolves each group to its sheet, matching titles
// case-insensitively. Groups without a sheet are absent from the map.
func (b *Book) sheetsByGroup(ctx context.Context) (map[models.Group]*sheets.SheetProperties, error) {
	ss, err := b.svc.Spreadsheets.Get(b.id).Fields(metaFields).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	found := map[models.Group]*sheets.SheetProperties{}
	for g, title := range b.titles {
		for _, s := range ss.Sheets {
			if s.Properties != nil && strings.EqualFold(s.Properties.Title, title) {
				found[g] = s.Properties
				break
			}
		}
	}
	return found, nil
}

// grid is one sheet's content: header labels and every row.
type grid struct {
	header []string
	rows   []*sheets.RowData
}

func (b *Book) readGrid(ctx context.Context, title string) (*grid, error) {
	ss, err := b.svc.Spreadsheets.Get(b.id).
		Ranges(fmt.Sprintf("'%s'!A:ZZ", title)).
		IncludeGridData(true).
		Fields(gridFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", title, err)
	}
	g := &grid{}
	if len(ss.Sheets) == 0 || len(ss.Sheets[0].Data) == 0 {
		return g, nil
	}
	g.rows = ss.Sheets[0].Data[0].RowData
	if len(g.rows) > 0 && g.rows[0] != nil {
		for _, cell := range g.rows[0].Values {
			g.header = append(g.header, headerString(cell))
		}
	}
	return g, nil
}

// findRow returns the index of the employee's row, or -1. Row 0 is the header.
func (g *grid) findRow(name string) int {
	for i := 1; i < len(g.rows); i++ {
		row := g.rows[i]
		if row == nil || len(row.Values) == 0 {
			continue
		}
		if models.SameName(cellString(row.Values[0]), name) {
			return i
		}
	}
	return -1
}

// findColumn returns the index of the date's header column, or -1.
func (g *grid) findColumn(date models.DayLabel) int {
	for i := 1; i < len(g.header); i++ {
		if strings.EqualFold(g.header[i], strings.TrimSpace(string(date))) {
			return i
		}
	}
	return -1
}

func (g *grid) cell(row, col int) *sheets.CellData {
	if row < 0 || row >= len(g.rows) || g.rows[row] == nil || col >= len(g.rows[row].Values) {
		return nil
	}
	return g.rows[row].Values[col]
}

// ListHistories reads every group's sheet concurrently and returns each
// employee row's most recent non-empty days, at most window of them when
// window > 0, sorted by employee name.
func (b *Book) ListHistories(ctx context.Context, window int) ([]models.EmployeeHistory, error) {
	props, err := b.sheetsByGroup(ctx)
	if err != nil {
		return nil, err
	}

	perGroup := make([][]models.EmployeeHistory, len(models.Groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range models.Groups {
		i, group := i, group
		p, ok := props[group]
		if !ok {
			b.logger.Warn("group sheet missing, skipping", "group", group, "title", b.titles[group])
			continue
		}
		g.Go(func() error {
			gr, err := b.readGrid(gctx, p.Title)
			if err != nil {
				return err
			}
			var out []models.EmployeeHistory
			for r := 1; r < len(gr.rows); r++ {
				row := gr.rows[r]
				if row == nil || len(row.Values) == 0 {
					continue
				}
				name := strings.TrimSpace(cellString(row.Values[0]))
				if name == "" {
					continue
				}
				out = append(out, models.EmployeeHistory{
					EmployeeName: name,
					Group:        group,
					History:      rowHistory(gr.header, row, window),
				})
			}
			perGroup[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := []models.EmployeeHistory{}
	for _, hs := range perGroup {
		all = append(all, hs...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].EmployeeName < all[j].EmployeeName
	})
	return all, nil
}

// GetHistory looks an employee up in every group's sheet and returns all of
// their non-empty days. The name and group come from the first group, in
// group order, that holds the employee. It returns nil when no sheet does.
func (b *Book) GetHistory(ctx context.Context, name string) (*models.EmployeeHistory, error) {
	props, err := b.sheetsByGroup(ctx)
	if err != nil {
		return nil, err
	}

	type match struct {
		name    string
		history []models.DayRecord
	}
	matches := make([]*match, len(models.Groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range models.Groups {
		i, group := i, group
		p, ok := props[group]
		if !ok {
			continue
		}
		g.Go(func() error {
			gr, err := b.readGrid(gctx, p.Title)
			if err != nil {
				return err
			}
			r := gr.findRow(name)
			if r < 0 {
				return nil
			}
			matches[i] = &match{
				name:    strings.TrimSpace(cellString(gr.rows[r].Values[0])),
				history: rowHistory(gr.header, gr.rows[r], 0),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var h *models.EmployeeHistory
	for i, m := range matches {
		if m == nil {
			continue
		}
		if h == nil {
			h = &models.EmployeeHistory{EmployeeName: m.name, Group: models.Groups[i], History: []models.DayRecord{}}
		}
		h.History = append(h.History, m.history...)
	}
	return h, nil
}

// WriteDay merges items into the employee's cell for date. A missing
// employee row or date column is added in the same batch update that writes
// the cell, growing the grid when it is full.
func (b *Book) WriteDay(ctx context.Context, group models.Group, employee string, date models.DayLabel, items []models.TaskItem) error {
	employee = strings.TrimSpace(employee)
	label := strings.TrimSpace(string(date))
	if employee == "" || label == "" {
		return errors.New("employee name and date are required")
	}
	if group == "" {
		group = models.DefaultGroup
	}

	props, err := b.sheetsByGroup(ctx)
	if err != nil {
		return err
	}
	p, ok := props[group]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, b.titles[group])
	}
	gr, err := b.readGrid(ctx, p.Title)
	if err != nil {
		return err
	}

	var requests []*sheets.Request
	var rowCount, colCount int64
	if p.GridProperties != nil {
		rowCount, colCount = p.GridProperties.RowCount, p.GridProperties.ColumnCount
	}

	row := gr.findRow(employee)
	if row < 0 {
		row = len(gr.rows)
		if row == 0 {
			row = 1
		}
		if int64(row) >= rowCount {
			requests = append(requests, appendDimension(p.SheetId, "ROWS", int64(row)+1-rowCount))
		}
		requests = append(requests, updateCell(p.SheetId, row, 0, stringCell(employee), "userEnteredValue"))
		b.logger.Info("adding employee row", "sheet", p.Title, "employee", employee, "row", row+1)
	}

	col := gr.findColumn(models.DayLabel(label))
	if col < 0 {
		col = len(gr.header)
		if col == 0 {
			col = 1
		}
		if int64(col) >= colCount {
			requests = append(requests, appendDimension(p.SheetId, "COLUMNS", int64(col)+1-colCount))
		}
		requests = append(requests, updateCell(p.SheetId, 0, col, stringCell(label), "userEnteredValue"))
		b.logger.Info("adding date column", "sheet", p.Title, "date", label, "column", ColumnName(col+1))
	}

	merged := models.MergeTaskItems(ParseCell(gr.cell(row, col)), items)
	requests = append(requests, updateCell(p.SheetId, row, col, RenderCell(merged), "userEnteredValue,textFormatRuns"))

	_, err = b.svc.Spreadsheets.BatchUpdate(b.id, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s%d: %w", ColumnName(col+1), row+1, err)
	}
	return nil
}

func stringCell(s string) *sheets.CellData {
	return &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{StringValue: &s}}
}

func appendDimension(sheetID int64, dim string, n int64) *sheets.Request {
	return &sheets.Request{AppendDimension: &sheets.AppendDimensionRequest{
		SheetId:   sheetID,
		Dimension: dim,
		Length:    n,
	}}
}

func updateCell(sheetID int64, row, col int, cell *sheets.CellData, fields string) *sheets.Request {
	return &sheets.Request{UpdateCells: &sheets.UpdateCellsRequest{
		Range: &sheets.GridRange{
			SheetId:          sheetID,
			StartRowIndex:    int64(row),
			EndRowIndex:      int64(row) + 1,
			StartColumnIndex: int64(col),
			EndColumnIndex:   int64(col) + 1,
		},
		Rows:   []*sheets.RowData{{Values: []*sheets.CellData{cell}}},
		Fields: fields,
	}}
}
