// Package reports renders the host-facing tournament reports: the player list
// as CSV, the theme breakdown as a pie chart and the deck dump as a workbook.
package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"

	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"github.com/xuri/excelize/v2"
)

var _ tournamentservice.ReportRenderer = (*Renderer)(nil)

// Palette colours the pie chart.
type Palette struct {
	Background drawing.Color
	Text       drawing.Color
}

// DefaultPalette is a dark background with light labels.
var DefaultPalette = Palette{
	Background: drawing.ColorFromHex("1e1f22"),
	Text:       drawing.ColorFromHex("f2f3f5"),
}

type Renderer struct {
	palette Palette
	width   int
	height  int
}

func NewRenderer(palette Palette) *Renderer {
	return &Renderer{palette: palette, width: 800, height: 800}
}

func (r *Renderer) PlayersCSV(tournamentName string, rows []tournamentdomain.PlayerRow) (tournamentdomain.Attachment, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Player", "Theme"}); err != nil {
		return tournamentdomain.Attachment{}, err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Player, row.Theme}); err != nil {
			return tournamentdomain.Attachment{}, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return tournamentdomain.Attachment{}, fmt.Errorf("failed to write players csv: %w", err)
	}
	return tournamentdomain.Attachment{Filename: tournamentName + ".csv", Content: buf.Bytes()}, nil
}

// ThemePie draws one slice per theme, labelled with the theme and its count.
func (r *Renderer) ThemePie(tournamentName string, counts []tournamentdomain.ThemeCount) (tournamentdomain.Attachment, error) {
	values := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		if c.Count <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: float64(c.Count),
			Label: fmt.Sprintf("%s (%d)", c.Theme, c.Count),
		})
	}

	var content []byte
	var err error
	if len(values) == 0 {
		content, err = r.renderPlaceholder("No themes registered")
	} else {
		content, err = r.renderPie(tournamentName, values)
	}
	if err != nil {
		return tournamentdomain.Attachment{}, fmt.Errorf("failed to render theme chart: %w", err)
	}
	return tournamentdomain.Attachment{Filename: tournamentName + " Pie.png", Content: content}, nil
}

func (r *Renderer) renderPie(title string, values []chart.Value) ([]byte, error) {
	pie := chart.PieChart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		TitleStyle: chart.Style{
			FontColor: r.palette.Text,
		},
		Background: chart.Style{
			FillColor: r.palette.Background,
		},
		Canvas: chart.Style{
			FillColor: r.palette.Background,
		},
		Values: values,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (r *Renderer) renderPlaceholder(msg string) ([]byte, error) {
	graph := chart.Chart{
		Width:  400,
		Height: 200,
		Background: chart.Style{
			FillColor: r.palette.Background,
		},
		Canvas: chart.Style{
			FillColor: r.palette.Background,
		},
		Elements: []chart.Renderable{
			func(rd chart.Renderer, cb chart.Box, _ chart.Style) {
				rd.SetFontColor(r.palette.Text)
				rd.SetFontSize(12.0)
				tb := rd.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				rd.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

const deckSheet = "Decks"

var deckHeader = []any{"Player", "Theme", "Main", "Extra", "Side", "URL"}

// DeckDump writes one row per player with each deck section in its own column.
func (r *Renderer) DeckDump(tournamentName string, rows []tournamentdomain.DeckRow) (tournamentdomain.Attachment, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), deckSheet); err != nil {
		return tournamentdomain.Attachment{}, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(deckSheet, "A1", &deckHeader); err != nil {
		return tournamentdomain.Attachment{}, fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return tournamentdomain.Attachment{}, err
		}
		values := []any{row.Player, row.Theme, row.Main, row.Extra, row.Side, row.URL}
		if err := f.SetSheetRow(deckSheet, cell, &values); err != nil {
			return tournamentdomain.Attachment{}, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(deckSheet, "A", "B", 24); err != nil {
		return tournamentdomain.Attachment{}, err
	}
	if err := f.SetColWidth(deckSheet, "C", "F", 60); err != nil {
		return tournamentdomain.Attachment{}, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return tournamentdomain.Attachment{}, fmt.Errorf("failed to write workbook: %w", err)
	}
	return tournamentdomain.Attachment{Filename: tournamentName + " Decks.xlsx", Content: buf.Bytes()}, nil
}
