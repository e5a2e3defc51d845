package services

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"sort"
	"strings"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/metrics"
	"github.com/Shivendrahari/SignalSync/internal/models"
	"github.com/jung-kurt/gofpdf"
)

const (
	exportDateLayout = "2006-01-02"
	pdfMarginMM      = 10.0
	jpegQuality      = 92
)

// Download is a generated file handed to the client
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Exporter produces the downloadable files of the dashboard
type Exporter struct {
	rasterizer Rasterizer
	loc        *time.Location
	now        func() time.Time
	log        *logger.PrefixLogger
}

// NewExporter creates an exporter drawing charts with r; loc is used for CSV
// timestamps and the "Generated" line of PDF reports
func NewExporter(r Rasterizer, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{
		rasterizer: r,
		loc:        loc,
		now:        time.Now,
		log:        logger.WithPrefix("[EXPORT] "),
	}
}

func (e *Exporter) stamp() string {
	return e.now().UTC().Format(exportDateLayout)
}

// ExportImage rasterizes the chart as png or jpg. JPEG has no alpha so the
// chart is flattened onto white first.
func (e *Exporter) ExportImage(cm models.ChartModel, format string) (*Download, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "jpeg" {
		format = "jpg"
	}
	if format != "png" && format != "jpg" {
		return nil, userError(fmt.Errorf("%w: %q", ErrUnsupportedFormat, format))
	}

	img, err := e.rasterizer.Rasterize(cm)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	contentType := "image/png"
	if format == "jpg" {
		contentType = "image/jpeg"
		err = jpeg.Encode(&buf, flattenOnWhite(img), &jpeg.Options{Quality: jpegQuality})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}

	metrics.IncrementExports(format)
	return &Download{
		FileName:    fmt.Sprintf("performance_%s_%s.%s", cm.Metric, e.stamp(), format),
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

// ExportPDF lays the chart out on a landscape A4 page under a title and a
// generation timestamp
func (e *Exporter) ExportPDF(cm models.ChartModel) (*Download, error) {
	img, err := e.rasterizer.Rasterize(cm)
	if err != nil {
		return nil, err
	}
	var raster bytes.Buffer
	if err := png.Encode(&raster, flattenOnWhite(img)); err != nil {
		return nil, fmt.Errorf("encode chart for pdf: %w", err)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 16)
	pdf.Text(pdfMarginMM, 10, tr("Performance Monitoring: "+cm.Title))
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(pdfMarginMM, 18, tr("Generated: "+e.now().In(e.loc).Format("2006-01-02 15:04:05")))

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("chart", opts, &raster)

	pageW, pageH := pdf.GetPageSize()
	b := img.Bounds()
	w := pageW - 2*pdfMarginMM
	h := w * float64(b.Dy()) / float64(b.Dx())
	if maxH := pageH - 25 - pdfMarginMM; h > maxH {
		h = maxH
		w = h * float64(b.Dx()) / float64(b.Dy())
	}
	pdf.ImageOptions("chart", pdfMarginMM, 25, w, h, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	metrics.IncrementExports("pdf")
	return &Download{
		FileName:    fmt.Sprintf("performance_report_%s_%s.pdf", cm.Metric, e.stamp()),
		ContentType: "application/pdf",
		Data:        out.Bytes(),
	}, nil
}

// ExportChartCSV writes every sample of resp in ascending time order, with
// timestamps in the display location as the table shows them. It works on
// the raw response, so it is not limited to the rendered table.
func (e *Exporter) ExportChartCSV(resp *models.PerformanceResponse, metric models.Metric) (*Download, error) {
	if resp == nil || resp.Empty() {
		return nil, ErrNoData
	}

	all := flatten(resp)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].point.Timestamp.Before(all[j].point.Timestamp)
	})

	var sb strings.Builder
	sb.WriteString("Timestamp,Device," + metric.Label() + ",Status\n")
	for _, fp := range all {
		fmt.Fprintf(&sb, "%s,%s,%s,%s\n",
			quoteField(fp.point.Timestamp.In(e.loc).Format(DisplayTimeLayout)),
			quoteField(fp.deviceName),
			formatValue(fp.point.Value),
			quoteField(string(fp.point.Status)),
		)
	}

	e.log.Debug("Chart CSV with %d rows for %d devices", len(all), len(resp.Devices))
	metrics.IncrementExports("csv")
	return &Download{
		FileName:    fmt.Sprintf("performance_data_%s_%s.csv", metric, e.stamp()),
		ContentType: "text/csv; charset=utf-8",
		Data:        []byte(sb.String()),
	}, nil
}

// ExportTableCSV writes the header and exactly the rendered rows, every cell
// trimmed and quoted
func (e *Exporter) ExportTableCSV(table models.TableView) (*Download, error) {
	var sb strings.Builder
	writeRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quoteField(strings.TrimSpace(c)))
		}
		sb.WriteByte('\n')
	}

	writeRow(table.Header)
	for _, row := range table.Rows {
		writeRow(row.Cells())
	}

	metrics.IncrementExports("table")
	return &Download{
		FileName:    fmt.Sprintf("device_performance_table_%s.csv", e.stamp()),
		ContentType: "text/csv; charset=utf-8",
		Data:        []byte(sb.String()),
	}, nil
}

// quoteField wraps s in double quotes, doubling embedded quotes
func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func flattenOnWhite(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.White, image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}
