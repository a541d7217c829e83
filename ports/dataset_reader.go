package ports

import (
	"context"
	"io"

	"biasaudit/domain/dataset"
)

// DatasetReader decodes an uploaded file into a Dataset. The file name selects the format.
type DatasetReader interface {
	Read(ctx context.Context, filename string, r io.Reader) (*dataset.Dataset, error)
}
