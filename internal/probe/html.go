package probe

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
)

// analyzeHTML extracts the largest table from sampled HTML and infers a
// schema from its cells. Row counts are bounded by the sampled prefix; an
// HTML page is not a streamable row source the way CSV is.
func analyzeHTML(decoded []byte, format Format, opt Options) (*Analysis, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := largestTable(doc)
	if table == nil {
		return nil, &apperrors.SchemaInferenceError{Reason: "no table element found in html"}
	}

	var cells [][]string
	var headerRow bool
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		var texts []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(cell.Text()))
		})
		if len(texts) == 0 {
			return
		}
		if i == 0 && row.Find("th").Length() > 0 {
			headerRow = true
		}
		cells = append(cells, texts)
	})
	if len(cells) == 0 {
		return nil, &apperrors.SchemaInferenceError{Reason: "table has no rows"}
	}

	if !headerRow {
		headerRow = looksLikeHeader(cells[0])
	}

	var headers []string
	var data [][]string
	if headerRow {
		headers = cells[0]
		data = cells[1:]
	} else {
		headers = make([]string, len(cells[0]))
		for i := range cells[0] {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
		data = cells
	}

	// Skip rows whose cell count disagrees with the header (rowspan and
	// colspan artifacts), counting them like misaligned CSV records.
	misaligned := 0
	aligned := make([][]string, 0, len(data))
	for _, row := range data {
		if len(row) != len(headers) {
			misaligned++
			continue
		}
		aligned = append(aligned, row)
	}

	rowCount := int64(len(aligned))
	if len(aligned) > opt.SampleRows {
		aligned = aligned[:opt.SampleRows]
	}

	schema, err := InferSchema(headers, aligned)
	if err != nil {
		return nil, err
	}

	quality := ProfileQuality(aligned, schema, ScanStats{
		RowCount:         rowCount,
		Encoding:         format.Encoding,
		EncodingFallback: format.Fallback,
		BOMStripped:      format.HasBOM,
		MisalignedRows:   misaligned,
	})

	return &Analysis{
		FileFormat: string(KindHTML),
		Encoding:   format.Encoding,
		HasBOM:     format.HasBOM,
		HasHeader:  headerRow,
		Schema:     schema,
		Quality:    quality,
	}, nil
}

// largestTable returns the table element with the most rows, or nil when
// the document has none.
func largestTable(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestRows := 0
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		if n := t.Find("tr").Length(); n > bestRows {
			best = t
			bestRows = n
		}
	})
	return best
}
