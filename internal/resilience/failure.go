package resilience

import (
	"time"

	"github.com/sells-group/meralco-rates/internal/model"
)

// ItemFailure records a discovery item that could not be turned into a
// monthly rate document.
type ItemFailure struct {
	Item      model.DiscoveryItem `json:"item"`
	Stage     string              `json:"stage"`
	Error     string              `json:"error"`
	ErrorType string              `json:"error_type"` // "transient" or "permanent"
	FailedAt  time.Time           `json:"failed_at"`
}

// NewItemFailure builds a failure record for item at the given stage.
func NewItemFailure(item model.DiscoveryItem, stage string, err error, at time.Time) ItemFailure {
	return ItemFailure{
		Item:      item,
		Stage:     stage,
		Error:     err.Error(),
		ErrorType: ClassifyError(err),
		FailedAt:  at,
	}
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
