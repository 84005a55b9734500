// Package render projects cart snapshots into HTML and CSV.
package render

import (
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"github.com/drstein77/cartview/internal/cart"
	"github.com/drstein77/cartview/internal/money"
)

//go:embed templates/*.html
var templates embed.FS

// PageData is everything the cart page needs.
type PageData struct {
	Snapshot cart.Snapshot
	Notice   string
}

// Empty reports whether the placeholder row is shown.
func (d PageData) Empty() bool {
	return d.Snapshot.Status == cart.StatusEmpty
}

// ShowTotals reports whether the totals panel is visible.
func (d PageData) ShowTotals() bool {
	return d.Snapshot.Status == cart.StatusPopulated
}

type Renderer struct {
	page   *template.Template
	symbol string
}

func NewRenderer(symbol string) (*Renderer, error) {
	funcs := template.FuncMap{
		"money": func(minor int64) string {
			return money.Format(minor, symbol)
		},
		"pathEscape": func(s fmt.Stringer) string {
			return url.PathEscape(s.String())
		},
	}

	page, err := template.New("cart.html").Funcs(funcs).ParseFS(templates, "templates/cart.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{page: page, symbol: symbol}, nil
}

// Symbol returns the currency prefix used for formatting.
func (r *Renderer) Symbol() string {
	return r.symbol
}

// Page writes the full cart document.
func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.page.Execute(w, data)
}

// CSV writes the cart lines followed by a total record.
func (r *Renderer) CSV(w io.Writer, snap cart.Snapshot) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"id", "title", "unit_price", "quantity", "subtotal"}); err != nil {
		return err
	}
	for _, l := range snap.Lines {
		record := []string{
			l.Item.ID.String(),
			l.Item.Title,
			money.Plain(l.Item.Price),
			strconv.Itoa(l.Item.Quantity),
			money.Plain(l.Subtotal),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"total", "", "", "", money.Plain(snap.Total)}); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}
