package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestErrorCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		function string
		want     string
	}{
		{"github.com/ora-civic/ora/internal/database/models.(*PostModel).GetPost", "database"},
		{"github.com/ora-civic/ora/internal/ledger.(*Ledger).publish", "ledger"},
		{"github.com/ora-civic/ora/internal/rest/handler.writeError", "rest"},
		{"main.serve", "application"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			ent := zapcore.Entry{Caller: zapcore.EntryCaller{Function: tt.function}}
			assert.Equal(t, tt.want, errorCategory(ent))
		})
	}
}

func TestSpanAttributes(t *testing.T) {
	t.Parallel()

	ent := zapcore.Entry{Level: zapcore.ErrorLevel, Message: "Request failed", LoggerName: "post_handler"}
	attrs := spanAttributes(ent, []zapcore.Field{
		zap.Int("status", 503),
		zap.Error(errors.New("remote service error")),
	})

	assert.Contains(t, attrs, attribute.String("error.message", "Request failed"))
	assert.Contains(t, attrs, attribute.String("error.logger", "post_handler"))
	assert.Contains(t, attrs, attribute.String("status", "503"))
	assert.Contains(t, attrs, attribute.String("error", "remote service error"))
}

func TestCoreOnlyRecordsErrors(t *testing.T) {
	t.Parallel()

	core := NewCore()
	assert.False(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))

	withFields := core.With([]zapcore.Field{zap.String("postID", "p1")}).(*Core)
	assert.Len(t, withFields.fields, 1)
	assert.Empty(t, core.(*Core).fields)
}
