package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/order"
)

// Format represents an output format
type Format string

const (
	FormatTable  Format = "table"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatTSV    Format = "tsv"
)

// ParseFormat validates an --output value. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatNDJSON, FormatYAML, FormatTSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json, ndjson, yaml or tsv)", s)
}

// Options for rendering
type Options struct {
	Format    Format
	Porcelain bool
}

// Renderer handles output rendering
type Renderer struct {
	writer io.Writer
	opts   Options
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	return &Renderer{
		writer: writer,
		opts:   opts,
	}
}

// RenderJSON renders data as JSON
func (r *Renderer) RenderJSON(data any) error {
	encoder := json.NewEncoder(r.writer)
	if !r.opts.Porcelain {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// RenderNDJSON renders each item on its own line
func (r *Renderer) RenderNDJSON(items []any) error {
	encoder := json.NewEncoder(r.writer)
	for _, item := range items {
		if err := encoder.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

// RenderYAML renders data as YAML
func (r *Renderer) RenderYAML(data any) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(data)
}

// RenderTSV renders data as tab-separated values
func (r *Renderer) RenderTSV(headers []string, rows [][]string) error {
	if _, err := fmt.Fprintln(r.writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(r.writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// RenderTable renders data as a formatted table
func (r *Renderer) RenderTable(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if r.opts.Porcelain {
		return r.RenderTSV(headers, rows)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	r.renderTableRow(headers, widths)
	r.renderTableSeparator(widths)
	for _, row := range rows {
		r.renderTableRow(row, widths)
	}
	return nil
}

func (r *Renderer) renderTableRow(cells []string, widths []int) {
	for i, cell := range cells {
		if i < len(widths) {
			fmt.Fprintf(r.writer, "%-*s", widths[i], cell)
			if i < len(cells)-1 {
				fmt.Fprint(r.writer, "  ")
			}
		}
	}
	fmt.Fprintln(r.writer)
}

func (r *Renderer) renderTableSeparator(widths []int) {
	for i, width := range widths {
		fmt.Fprint(r.writer, strings.Repeat("-", width))
		if i < len(widths)-1 {
			fmt.Fprint(r.writer, "  ")
		}
	}
	fmt.Fprintln(r.writer)
}

// presented returns b with columns and cards in presentation order.
// Inconsistent boards are rendered as projected rather than rejected.
func presented(b domain.Board) domain.Board {
	out := b.Clone()
	out.Columns = order.Project(out.Columns, out.ColumnOrder, domain.ColumnKey)
	for i := range out.Columns {
		out.Columns[i].Cards = order.Project(out.Columns[i].Cards, out.Columns[i].CardOrder, domain.CardKey)
	}
	return out
}

var boardHeaders = []string{"COLUMN", "POS", "CARD", "TITLE"}

func boardRows(b domain.Board) [][]string {
	var rows [][]string
	for _, col := range b.Columns {
		if len(col.Cards) == 0 {
			rows = append(rows, []string{col.ID + " " + col.Title, "-", "-", "(empty)"})
			continue
		}
		for i, card := range col.Cards {
			label := ""
			if i == 0 {
				label = col.ID + " " + col.Title
			}
			rows = append(rows, []string{label, strconv.Itoa(i), card.ID, card.Title})
		}
	}
	return rows
}

// RenderBoard writes a board with its columns and cards in presentation order.
func (r *Renderer) RenderBoard(b domain.Board) error {
	b = presented(b)
	switch r.opts.Format {
	case FormatJSON:
		return r.RenderJSON(b)
	case FormatNDJSON:
		items := make([]any, 0, len(b.Columns))
		for _, col := range b.Columns {
			items = append(items, col)
		}
		return r.RenderNDJSON(items)
	case FormatYAML:
		return r.RenderYAML(b)
	case FormatTSV:
		var rows [][]string
		for _, col := range b.Columns {
			for i, card := range col.Cards {
				rows = append(rows, []string{col.ID, strconv.Itoa(i), card.ID, card.Title})
			}
		}
		return r.RenderTSV([]string{"column_id", "position", "card_id", "title"}, rows)
	}

	if !r.opts.Porcelain {
		fmt.Fprintf(r.writer, "%s  %s  (etag %d)\n\n", b.ID, b.Title, b.ETag)
	}
	if len(b.Columns) == 0 {
		fmt.Fprintln(r.writer, "(no columns)")
		return nil
	}
	return r.RenderTable(boardHeaders, boardRows(b))
}

// RenderBoards writes a board listing without columns.
func (r *Renderer) RenderBoards(boards []domain.Board) error {
	switch r.opts.Format {
	case FormatJSON:
		return r.RenderJSON(boards)
	case FormatYAML:
		return r.RenderYAML(boards)
	case FormatNDJSON:
		items := make([]any, len(boards))
		for i, b := range boards {
			items[i] = b
		}
		return r.RenderNDJSON(items)
	}
	rows := make([][]string, len(boards))
	for i, b := range boards {
		rows[i] = []string{b.ID, b.Title, strconv.Itoa(len(b.ColumnOrder)), strconv.FormatInt(b.ETag, 10)}
	}
	headers := []string{"ID", "TITLE", "COLUMNS", "ETAG"}
	if r.opts.Format == FormatTSV {
		return r.RenderTSV(headers, rows)
	}
	return r.RenderTable(headers, rows)
}

// RenderEvents writes event log entries, oldest first.
func (r *Renderer) RenderEvents(evs []domain.Event) error {
	switch r.opts.Format {
	case FormatJSON:
		return r.RenderJSON(evs)
	case FormatYAML:
		return r.RenderYAML(evs)
	case FormatNDJSON:
		items := make([]any, len(evs))
		for i, e := range evs {
			items[i] = e
		}
		return r.RenderNDJSON(items)
	}
	rows := make([][]string, len(evs))
	for i, e := range evs {
		resource, etag, payload := "-", "-", ""
		if e.ResourceID != nil {
			resource = *e.ResourceID
		}
		if e.ETag != nil {
			etag = strconv.FormatInt(*e.ETag, 10)
		}
		if e.Payload != nil {
			payload = *e.Payload
		}
		rows[i] = []string{strconv.FormatInt(e.ID, 10), e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, resource, etag, payload}
	}
	headers := []string{"ID", "TIME", "EVENT", "RESOURCE", "ETAG", "PAYLOAD"}
	if r.opts.Format == FormatTSV {
		return r.RenderTSV(headers, rows)
	}
	return r.RenderTable(headers, rows)
}
