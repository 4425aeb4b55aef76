package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
)

const cjkFamily = "cjk"

// PDFRenderer lays out a Statement on A4 pages. Without a CJK font the
// document falls back to the built-in Helvetica with English headings.
type PDFRenderer struct {
	fontPath string
}

// NewPDFRenderer returns a renderer using the TrueType font at fontPath for
// all text. An empty fontPath selects the built-in font.
func NewPDFRenderer(fontPath string) (*PDFRenderer, error) {
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err != nil {
			return nil, fmt.Errorf("pdf font: %w", err)
		}
	}
	return &PDFRenderer{fontPath: fontPath}, nil
}

type pdfDoc struct {
	*fpdf.Fpdf
	family string
	cjk    bool
	tr     func(string) string
}

func (d *pdfDoc) font(bold bool, size float64) {
	style := ""
	if bold && !d.cjk {
		style = "B"
	}
	d.SetFont(d.family, style, size)
}

// label picks the Chinese text when the font can draw it.
func (d *pdfDoc) label(zh, en string) string {
	if d.cjk {
		return zh
	}
	return d.tr(en)
}

func (r *PDFRenderer) Render(w io.Writer, st Statement) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(st.TitleEN+" "+st.Period, true)
	pdf.AliasNbPages("")

	d := &pdfDoc{Fpdf: pdf, family: "Helvetica", tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if r.fontPath != "" {
		pdf.AddUTF8Font(cjkFamily, "", r.fontPath)
		d.family, d.cjk, d.tr = cjkFamily, true, func(s string) string { return s }
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		d.font(false, 8)
		pdf.SetTextColor(156, 163, 175)
		pdf.CellFormat(0, 5, d.label(
			"生成时间："+st.GeneratedAt.Format("2006-01-02 15:04"),
			"Generated "+st.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.header(d, st)
	for _, sec := range st.Sections {
		r.section(d, sec)
	}
	r.totals(d, st)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func (r *PDFRenderer) header(d *pdfDoc, st Statement) {
	d.SetTextColor(31, 41, 55)
	d.font(true, 18)
	d.CellFormat(0, 10, d.label(ReportTitle, ReportTitleEN), "", 1, "C", false, 0, "")
	d.font(true, 14)
	d.CellFormat(0, 8, d.label(st.Title, st.TitleEN), "", 1, "C", false, 0, "")
	if d.cjk {
		d.font(false, 9)
		d.SetTextColor(107, 114, 128)
		d.CellFormat(0, 5, st.TitleEN, "", 1, "C", false, 0, "")
	}
	d.font(true, 11)
	d.SetTextColor(55, 65, 81)
	d.CellFormat(0, 7, d.label("报表期间："+PeriodLabel(st.Period), "Period: "+st.Period), "B", 1, "C", false, 0, "")
	d.Ln(6)
}

func (r *PDFRenderer) section(d *pdfDoc, sec Section) {
	width, _ := d.GetPageSize()
	left, _, right, _ := d.GetMargins()
	amountW := 45.0
	nameW := width - left - right - amountW

	d.SetTextColor(31, 41, 55)
	d.font(true, 12)
	d.CellFormat(0, 8, d.label(sec.Label, sec.LabelEN), "", 1, "L", false, 0, "")

	d.SetFillColor(249, 250, 251)
	d.font(true, 9)
	d.CellFormat(nameW, 7, d.label("科目名称", "Item"), "1", 0, "L", true, 0, "")
	d.CellFormat(amountW, 7, d.label("金额 (元)", "Amount (CNY)"), "1", 1, "R", true, 0, "")

	for _, ln := range sec.Lines {
		name := ln.Name
		if ln.Depth > 0 {
			glyph := "├ "
			if ln.Last {
				glyph = "└ "
			}
			if !d.cjk {
				glyph = "- "
			}
			name = strings.Repeat("    ", ln.Depth-1) + glyph + name
		}
		d.font(ln.Depth == 0, 9)
		d.CellFormat(nameW, 6, d.tr(name), "LR", 0, "L", false, 0, "")
		d.CellFormat(amountW, 6, FormatPlain(ln.Amount), "LR", 1, "R", false, 0, "")
	}

	d.SetFillColor(243, 244, 246)
	d.font(true, 9)
	d.CellFormat(nameW, 7, d.label(sec.Label+"合计", "Total "+strings.ToLower(sec.LabelEN)), "1", 0, "L", true, 0, "")
	d.CellFormat(amountW, 7, FormatPlain(sec.Total), "1", 1, "R", true, 0, "")
	d.Ln(6)
}

func (r *PDFRenderer) totals(d *pdfDoc, st Statement) {
	d.SetTextColor(31, 41, 55)
	d.font(true, 12)
	d.CellFormat(0, 8, d.label("财务汇总", "Summary"), "B", 1, "L", false, 0, "")
	for _, t := range st.Totals {
		border := ""
		if t.Final {
			border = "T"
			if t.Amount >= 0 {
				d.SetTextColor(16, 185, 129)
			} else {
				d.SetTextColor(239, 68, 68)
			}
		}
		d.font(t.Final, 10)
		d.CellFormat(120, 7, d.label(t.Label+"：", t.LabelEN+":"), border, 0, "L", false, 0, "")
		d.CellFormat(0, 7, d.tr(FormatAmount(t.Amount)), border, 1, "R", false, 0, "")
	}
}
