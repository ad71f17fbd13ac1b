package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/meralco-rates/internal/model"
)

func TestNewItemFailure(t *testing.T) {
	item := model.DiscoveryItem{
		DocumentURL: "https://company.example.com/files/2024-03/rates.pdf",
		MonthKey:    "2024-03",
	}
	at := time.Date(2024, 3, 12, 1, 30, 0, 0, time.UTC)

	f := NewItemFailure(item, "fetch", NewTransientError(errors.New("http 503"), 503), at)

	assert.Equal(t, item, f.Item)
	assert.Equal(t, "fetch", f.Stage)
	assert.Equal(t, "http 503", f.Error)
	assert.Equal(t, "transient", f.ErrorType)
	assert.Equal(t, at, f.FailedAt)
}
