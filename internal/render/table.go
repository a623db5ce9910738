// Package render draws the rule table for the help screen.
package render

import (
	"io"

	"example.com/fairplay/internal/rules"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

const Corner = `v PC\User >`

// Renderer draws a rule table. The CLI receives one at construction.
type Renderer interface {
	RenderRules(w io.Writer, t *rules.Table) error
}

// TableRenderer prints a bordered grid: rows are computer moves, columns user
// moves, cells the user's result.
type TableRenderer struct {
	NoColor bool
}

func (r TableRenderer) RenderRules(w io.Writer, t *rules.Table) error {
	head := r.paint(color.FgGreen)
	rowLabel := r.paint(color.FgYellow)
	cell := map[rules.Outcome]func(a ...interface{}) string{
		rules.Win:  r.paint(color.FgBlue),
		rules.Lose: r.paint(color.FgRed),
		rules.Draw: r.paint(color.FgWhite),
	}

	moves := t.Moves()
	header := make([]string, 0, len(moves)+1)
	header = append(header, Corner)
	for _, m := range moves {
		header = append(header, head(m))
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetRowLine(true)

	for i, pc := range moves {
		row := make([]string, 0, len(moves)+1)
		row = append(row, rowLabel(pc))
		for j := range moves {
			res := t.At(i, j).Invert()
			row = append(row, cell[res](res.String()))
		}
		tw.Append(row)
	}

	tw.Render()
	return nil
}

func (r TableRenderer) paint(attr color.Attribute) func(a ...interface{}) string {
	c := color.New(attr)
	if r.NoColor {
		c.DisableColor()
	}
	return c.SprintFunc()
}
