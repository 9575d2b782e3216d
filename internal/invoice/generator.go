package invoice

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"github.com/chariotlab/atelier-api/internal/cart"
	"github.com/chariotlab/atelier-api/internal/common"
	"github.com/chariotlab/atelier-api/internal/pricing"
	"github.com/chariotlab/atelier-api/internal/selection"
)

// Status tracks an order form through its rendering stages.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusComposing  Status = "composing"
	StatusFinalizing Status = "finalizing"
	StatusEmitted    Status = "emitted"
	StatusFailed     Status = "failed"
)

// ErrEmptyCart rejects order form generation for carts without items.
var ErrEmptyCart = common.NewAppError("EMPTY_CART",
	"cannot generate an order form for an empty cart", http.StatusConflict, nil)

// Document is a rendered order form.
type Document struct {
	PDF         []byte
	OrderNumber int
	Status      Status
	GeneratedAt time.Time
}

// Generator renders carts into A4 order form PDFs.
type Generator struct {
	Logo        *LogoFetcher
	Now         func() time.Time
	OrderNumber func() int
	Logger      zerolog.Logger
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Generator) orderNumber() int {
	if g.OrderNumber != nil {
		return g.OrderNumber()
	}
	return rand.IntN(100000)
}

const (
	pageLeft   = 10.0
	pageRight  = 200.0
	tableWidth = pageRight - pageLeft
)

// column widths, summing to the table width
var columnWidths = []float64{40, 22, 46, 22, 22, 16, 22}

var columnTitles = []string{
	"Produit", "Matériau", "Accessoires", "Prix Module", "Prix Access.", "Quantité", "Sous-total",
}

// Generate renders the cart into the order form. The document passes through
// composing and finalizing before it is emitted; any rendering failure leaves
// it in the failed state with no usable bytes.
func (g *Generator) Generate(ctx context.Context, view cart.View) (Document, error) {
	doc := Document{Status: StatusIdle, GeneratedAt: g.now()}
	if len(view.Items) == 0 {
		return doc, ErrEmptyCart
	}
	doc.OrderNumber = g.orderNumber()

	doc.Status = StatusComposing
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-7)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	g.renderHeader(ctx, pdf, tr, doc.OrderNumber)
	g.renderTableHeader(pdf, tr)
	for i, item := range view.Items {
		g.renderRow(pdf, tr, i, item)
	}

	doc.Status = StatusFinalizing
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(tableWidth, 8, tr(fmt.Sprintf("Total : %s €", pricing.FormatEuro(view.Total))), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		doc.Status = StatusFailed
		g.Logger.Error().Err(err).Str("cart_id", view.ID).Msg("order form rendering failed")
		return doc, common.NewAppError("RENDER_FAILED", "order form rendering failed", http.StatusInternalServerError, err)
	}

	doc.PDF = buf.Bytes()
	doc.Status = StatusEmitted
	return doc, nil
}

func (g *Generator) renderHeader(ctx context.Context, pdf *fpdf.Fpdf, tr func(string) string, orderNumber int) {
	pdf.SetFillColor(235, 235, 235)
	pdf.Rect(0, 0, 210, 40, "F")

	if data, imageType, ok := g.Logo.Fetch(ctx); ok {
		name := "logo"
		opts := fpdf.ImageOptions{ImageType: imageType}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.ImageOptions(name, pageLeft, 8, 40, 0, false, opts, 0, "")
	}

	pdf.SetXY(pageLeft, 12)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(tableWidth, 8, "BON DE COMMANDE", "", 1, "R", false, 0, "")
	pdf.SetX(pageLeft)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(tableWidth, 6, "Usine Renault de Sandouville", "", 1, "R", false, 0, "")

	pdf.SetXY(pageLeft, 46)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(tableWidth/2, 6, fmt.Sprintf("Date : %s", g.now().Format("02/01/2006")), "", 0, "L", false, 0, "")
	pdf.CellFormat(tableWidth/2, 6, tr(fmt.Sprintf("Commande n° : %05d", orderNumber)), "", 1, "R", false, 0, "")

	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(pageLeft, 56, pageRight, 56)
	pdf.SetY(60)
}

func (g *Generator) renderTableHeader(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetX(pageLeft)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(60, 60, 60)
	pdf.SetTextColor(255, 255, 255)
	for i, title := range columnTitles {
		pdf.CellFormat(columnWidths[i], 8, tr(title), "", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// accessorySummary renders the "Accessoires" cell: each accessory name with
// its price, comma joined, or "Aucun" when the line carries none.
func accessorySummary(accessories []selection.AccessoryChoice) string {
	if len(accessories) == 0 {
		return "Aucun"
	}
	labels := make([]string, 0, len(accessories))
	for _, acc := range accessories {
		labels = append(labels, fmt.Sprintf("%s (%s €)", acc.Name, pricing.FormatEuro(acc.Price)))
	}
	return strings.Join(labels, ", ")
}

func (g *Generator) renderRow(pdf *fpdf.Fpdf, tr func(string) string, index int, item cart.ItemView) {
	accessories := accessorySummary(item.Accessories)

	pdf.SetFont("Helvetica", "", 8.5)
	lines := pdf.SplitText(tr(accessories), columnWidths[2]-3)
	rowHeight := float64(len(lines)) * 4.5
	if rowHeight < 7 {
		rowHeight = 7
	}

	// keep the row together across page breaks
	if pdf.GetY()+rowHeight > 270 {
		pdf.AddPage()
		g.renderTableHeader(pdf, tr)
		pdf.SetFont("Helvetica", "", 8.5)
	}

	x := pageLeft
	y := pdf.GetY()
	if index%2 == 1 {
		pdf.SetFillColor(245, 245, 245)
		pdf.Rect(x, y, tableWidth, rowHeight, "F")
	}
	pdf.SetTextColor(0, 0, 0)

	cells := []struct {
		text  string
		align string
	}{
		{item.ProductName, "L"},
		{item.Material, "C"},
		{"", "L"}, // accessories drawn line by line below
		{pricing.FormatEuro(item.UnitPrice) + " €", "R"},
		{pricing.FormatEuro(item.AccessoryTotal) + " €", "R"},
		{fmt.Sprintf("%d", item.Quantity), "C"},
		{pricing.FormatEuro(item.LineTotal) + " €", "R"},
	}
	for i, cell := range cells {
		pdf.SetXY(x, y)
		if i == 2 {
			for j, line := range lines {
				pdf.SetXY(x, y+float64(j)*4.5)
				pdf.CellFormat(columnWidths[i], 4.5, line, "", 0, "L", false, 0, "")
			}
		} else {
			pdf.CellFormat(columnWidths[i], rowHeight, tr(cell.text), "", 0, cell.align, false, 0, "")
		}
		x += columnWidths[i]
	}
	pdf.SetXY(pageLeft, y+rowHeight)
}
