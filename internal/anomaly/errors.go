package anomaly

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned when inference is requested before any
// trained detector artifact has been published.
var ErrModelUnavailable = errors.New("no trained detector available")

// DataIntegrityError reports training input that cannot produce a usable
// detector, such as an empty dataset or one with no sufficiently covered
// numeric columns.
type DataIntegrityError struct {
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("training data integrity: %s", e.Reason)
}

// FeatureMismatchError reports an inference input that does not carry the
// feature columns the published detector was trained on.
type FeatureMismatchError struct {
	Missing []string
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("reading is missing trained features %v", e.Missing)
}
