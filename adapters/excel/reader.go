package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"biasaudit/adapters/api"
	"biasaudit/domain/core"
	"biasaudit/domain/dataset"
	"biasaudit/internal/logging"
	"biasaudit/ports"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const utf8BOM = "\uFEFF"

// DataReader decodes CSV and XLSX uploads into a dataset
type DataReader struct {
	logger *zap.Logger
}

var _ ports.DatasetReader = (*DataReader)(nil)

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(logger *zap.Logger) *DataReader {
	return &DataReader{logger: logging.OrNop(logger).Named("reader")}
}

// Read picks the decoder from the file extension. The first row is the header.
func (r *DataReader) Read(ctx context.Context, filename string, src io.Reader) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ext := strings.ToLower(filepath.Ext(filename))

	var rows [][]string
	var err error
	switch ext {
	case ".csv":
		rows, err = r.readCSV(src)
	case ".xlsx":
		rows, err = r.readExcel(src)
	case ".json":
		return r.readJSON(filename, src)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file has no header row", core.ErrMalformedDataset)
	}

	headers := rows[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	ds, err := dataset.New(headers, rows[1:])
	if err != nil {
		return nil, err
	}

	r.logger.Debug("dataset decoded",
		zap.String("file", filename),
		zap.Int("columns", len(ds.Columns)),
		zap.Int("rows", ds.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return ds, nil
}

// readCSV reads every record; ragged rows are padded or rejected by dataset.New
func (r *DataReader) readCSV(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV file: %v", core.ErrMalformedDataset, err)
	}
	return rows, nil
}

// readJSON decodes an array of flat records
func (r *DataReader) readJSON(filename string, src io.Reader) (*dataset.Dataset, error) {
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read JSON file: %v", core.ErrMalformedDataset, err)
	}
	ds, err := api.DecodeRecords(body, "")
	if err != nil {
		return nil, err
	}
	r.logger.Debug("dataset decoded", zap.String("file", filename), zap.Int("rows", ds.Len()))
	return ds, nil
}

// readExcel reads the first sheet of the workbook
func (r *DataReader) readExcel(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", core.ErrMalformedDataset, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", core.ErrMalformedDataset)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", core.ErrMalformedDataset, sheets[0], err)
	}
	return rows, nil
}
