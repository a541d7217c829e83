package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"biasaudit/domain/core"
	"biasaudit/domain/dataset"
	"biasaudit/internal/logging"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// maxBody caps a remote dataset response
const maxBody = 64 << 20

// Reader fetches a dataset from a REST endpoint that returns JSON records
type Reader struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewReader creates a new API reader
func NewReader(timeout time.Duration, logger *zap.Logger) *Reader {
	return &Reader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.OrNop(logger).Named("api_reader"),
	}
}

// Fetch downloads url and decodes the records found at dataPath. The raw body is
// returned so callers can fingerprint it.
func (r *Reader) Fetch(ctx context.Context, url, dataPath string) (*dataset.Dataset, []byte, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid url: %v", core.ErrMalformedDataset, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("%w: endpoint returned HTTP %d", core.ErrMalformedDataset, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	ds, err := DecodeRecords(body, dataPath)
	if err != nil {
		return nil, nil, err
	}

	r.logger.Info("dataset fetched",
		zap.String("url", url),
		zap.Int("rows", ds.Len()),
		zap.Duration("response_time", time.Since(startTime)))
	return ds, body, nil
}

// DecodeRecords turns the JSON array (or single object) at dataPath into a dataset.
// Columns follow first appearance across records; absent keys and nulls are missing cells.
func DecodeRecords(body []byte, dataPath string) (*dataset.Dataset, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", core.ErrMalformedDataset)
	}

	dataResult := gjson.ParseBytes(body)
	if dataPath != "" && dataPath != "." {
		dataResult = dataResult.Get(dataPath)
	}
	if !dataResult.Exists() {
		return nil, fmt.Errorf("%w: data path '%s' not found", core.ErrMalformedDataset, dataPath)
	}

	var records []gjson.Result
	switch {
	case dataResult.IsArray():
		records = dataResult.Array()
	case dataResult.IsObject():
		records = []gjson.Result{dataResult}
	default:
		return nil, fmt.Errorf("%w: data path '%s' is not an array or object", core.ErrMalformedDataset, dataPath)
	}

	var headers []string
	index := map[string]int{}
	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		if !rec.IsObject() {
			return nil, fmt.Errorf("%w: record %d is not an object", core.ErrMalformedDataset, i)
		}
		row := make([]string, len(headers))
		rec.ForEach(func(key, value gjson.Result) bool {
			col, ok := index[key.String()]
			if !ok {
				col = len(headers)
				index[key.String()] = col
				headers = append(headers, key.String())
			}
			for len(row) <= col {
				row = append(row, "")
			}
			row[col] = cellText(value)
			return true
		})
		rows = append(rows, row)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: records have no fields", core.ErrMalformedDataset)
	}
	return dataset.New(headers, rows)
}

func cellText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	case gjson.True:
		return "True"
	case gjson.False:
		return "False"
	default:
		return v.Raw
	}
}
