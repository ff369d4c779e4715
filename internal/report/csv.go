package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/phishsense/phishsense/internal/feature"
	"github.com/phishsense/phishsense/internal/model"
)

// WriteCSV renders rows in the tabular report contract:
// url, feature_1..feature_30, prediction, confidence, error.
// Failed rows leave the feature and prediction columns empty and carry the
// error code in the last column.
func WriteCSV(w io.Writer, rows []model.ReportRow) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, feature.NumSlots+4)
	header = append(header, "url")
	for i := 1; i <= feature.NumSlots; i++ {
		header = append(header, fmt.Sprintf("feature_%d", i))
	}
	header = append(header, "prediction", "confidence", "error")
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for i := range record {
			record[i] = ""
		}
		record[0] = row.URL
		if row.Classified() {
			for i, v := range row.Features {
				record[1+i] = strconv.Itoa(int(v))
			}
			record[1+feature.NumSlots] = row.Classification.Label
			record[2+feature.NumSlots] = strconv.FormatFloat(row.Classification.Confidence, 'f', 4, 64)
		} else {
			record[3+feature.NumSlots] = row.ErrCode
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
