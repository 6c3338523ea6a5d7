package plots

import (
	"math"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// Page geometry in millimetres for landscape A4.
const (
	pageW  = 297.0
	pageH  = 210.0
	margin = 15.0
	ticks  = 5
)

type xy struct {
	x, y float64
}

// frame maps data coordinates onto the plot area of the current page.
type frame struct {
	left, top, width, height float64
	xMin, xMax, yMin, yMax   float64
}

func newFrame(xMin, xMax, yMin, yMax float64) frame {
	if xMax <= xMin {
		xMax = xMin + 1
	}
	if yMax <= yMin {
		yMax = yMin + 1
	}
	pad := (yMax - yMin) * 0.05
	return frame{
		left:   margin + 15,
		top:    margin + 12,
		width:  pageW - 2*margin - 20,
		height: pageH - 2*margin - 25,
		xMin:   xMin,
		xMax:   xMax,
		yMin:   yMin - pad,
		yMax:   yMax + pad,
	}
}

func (f frame) px(x float64) float64 {
	return f.left + (x-f.xMin)/(f.xMax-f.xMin)*f.width
}

func (f frame) py(y float64) float64 {
	return f.top + f.height - (y-f.yMin)/(f.yMax-f.yMin)*f.height
}

func (f frame) axes(pdf *fpdf.Fpdf, dateAxis bool) {
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Rect(f.left, f.top, f.width, f.height, "D")

	pdf.SetFont("Arial", "", 8)
	pdf.SetDrawColor(220, 220, 220)
	pdf.SetLineWidth(0.1)
	for i := 0; i <= ticks; i++ {
		frac := float64(i) / ticks

		yv := f.yMin + frac*(f.yMax-f.yMin)
		y := f.py(yv)
		pdf.Line(f.left, y, f.left+f.width, y)
		label := strconv.FormatFloat(yv, 'f', 1, 64)
		pdf.Text(f.left-pdf.GetStringWidth(label)-2, y+1, label)

		xv := f.xMin + frac*(f.xMax-f.xMin)
		x := f.px(xv)
		pdf.Line(x, f.top, x, f.top+f.height)
		if dateAxis {
			label = time.Unix(int64(math.Round(xv))*86400, 0).UTC().Format(models.DateLayout)
		} else {
			label = strconv.FormatFloat(xv, 'f', 0, 64)
		}
		pdf.Text(x-pdf.GetStringWidth(label)/2, f.top+f.height+5, label)
	}
}

func title(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(pageW-2*margin, 8, text, "", 0, "C", false, 0, "")
}

func bounds(points []xy) (xMin, xMax, yMin, yMax float64) {
	xMin, yMin = math.Inf(1), math.Inf(1)
	xMax, yMax = math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		xMin = math.Min(xMin, p.x)
		xMax = math.Max(xMax, p.x)
		yMin = math.Min(yMin, p.y)
		yMax = math.Max(yMax, p.y)
	}
	if math.IsInf(xMin, 1) {
		return 0, 1, 0, 1
	}
	return
}

func polyline(pdf *fpdf.Fpdf, f frame, points []xy) {
	for i := 1; i < len(points); i++ {
		pdf.Line(f.px(points[i-1].x), f.py(points[i-1].y), f.px(points[i].x), f.py(points[i].y))
	}
}

func forecastChart(pdf *fpdf.Fpdf, heading string, history []models.SeriesPoint, forecast []models.ForecastPoint) {
	title(pdf, heading)

	var all []xy
	observed := make([]xy, len(history))
	for i, p := range history {
		observed[i] = xy{float64(p.Date.Ordinal()), p.Value}
	}
	all = append(all, observed...)

	line := make([]xy, len(forecast))
	upper := make([]xy, len(forecast))
	lower := make([]xy, len(forecast))
	for i, p := range forecast {
		x := float64(p.Date.Ordinal())
		line[i] = xy{x, p.PredictedValue}
		upper[i] = xy{x, p.UpperBound}
		lower[i] = xy{x, p.LowerBound}
	}
	all = append(all, upper...)
	all = append(all, lower...)

	f := newFrame(bounds(all))
	f.axes(pdf, true)

	if len(forecast) > 1 {
		band := make([]fpdf.PointType, 0, 2*len(forecast))
		for _, p := range upper {
			band = append(band, fpdf.PointType{X: f.px(p.x), Y: f.py(p.y)})
		}
		for i := len(lower) - 1; i >= 0; i-- {
			band = append(band, fpdf.PointType{X: f.px(lower[i].x), Y: f.py(lower[i].y)})
		}
		pdf.SetAlpha(0.3, "Normal")
		pdf.SetFillColor(0, 114, 178)
		pdf.Polygon(band, "F")
		pdf.SetAlpha(1, "Normal")
	}

	pdf.SetDrawColor(0, 114, 178)
	pdf.SetLineWidth(0.5)
	polyline(pdf, f, line)

	pdf.SetFillColor(0, 0, 0)
	for _, p := range observed {
		pdf.Circle(f.px(p.x), f.py(p.y), 0.5, "F")
	}

	axisLabels(pdf, f, "Date", "Stock Usage")
}

func lineChart(pdf *fpdf.Fpdf, heading string, points []xy) {
	title(pdf, heading)
	f := newFrame(bounds(points))
	f.axes(pdf, true)

	pdf.SetDrawColor(0, 114, 178)
	pdf.SetLineWidth(0.5)
	polyline(pdf, f, points)

	axisLabels(pdf, f, "Date", heading)
}

// barChart draws horizontal bars, largest at the top.
func barChart(pdf *fpdf.Fpdf, heading string, features []models.FeatureImportance) {
	title(pdf, heading)

	maxImp := 0.0
	for _, fi := range features {
		maxImp = math.Max(maxImp, fi.Importance)
	}
	if maxImp <= 0 {
		maxImp = 1
	}

	const labelW = 45.0
	left := margin + labelW
	top := margin + 12
	width := pageW - 2*margin - labelW - 20
	rowH := math.Min(8, (pageH-2*margin-20)/float64(len(features)))

	pdf.SetFont("Arial", "", 8)
	pdf.SetFillColor(0, 114, 178)
	for i, fi := range features {
		y := top + float64(i)*rowH
		w := fi.Importance / maxImp * width
		pdf.Rect(left, y+rowH*0.15, w, rowH*0.7, "F")
		pdf.Text(left-pdf.GetStringWidth(fi.Feature)-2, y+rowH*0.65, fi.Feature)
		value := strconv.FormatFloat(fi.Importance, 'f', 3, 64)
		pdf.Text(left+w+2, y+rowH*0.65, value)
	}
}

func axisLabels(pdf *fpdf.Fpdf, f frame, xLabel, yLabel string) {
	pdf.SetFont("Arial", "", 9)
	pdf.Text(f.left+f.width/2-pdf.GetStringWidth(xLabel)/2, f.top+f.height+11, xLabel)
	pdf.TransformBegin()
	pdf.TransformRotate(90, margin, f.top+f.height/2)
	pdf.Text(margin-pdf.GetStringWidth(yLabel)/2, f.top+f.height/2, yLabel)
	pdf.TransformEnd()
}
