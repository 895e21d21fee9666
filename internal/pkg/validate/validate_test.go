package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-notify-realtime/internal/domain"
)

type sample struct {
	Title string                  `validate:"required"`
	Type  domain.NotificationType `validate:"omitempty,notification_type"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Title: "t"}))
	assert.NoError(t, Struct(sample{Title: "t", Type: domain.NotificationAlert}))

	err := Struct(sample{Type: "PAGER"})
	assert.EqualError(t, err, "field 'Title' failed 'required'; field 'Type' failed 'notification_type'")
}
