package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrRequestID     = attribute.Key("request_id")
	attrEventType     = attribute.Key("ledger.event_type")
	attrOutboxEntryID = attribute.Key("ledger.outbox_entry_id")
)

// spanParams maps path parameters onto span attributes. A parameter with a
// route segment only counts on routes under that segment, since :id names
// periods and outbox entries alike.
var spanParams = []struct {
	param   string
	segment string
	key     attribute.Key
}{
	{"product_id", "", telemetry.AttrProductID},
	{"type", "/events/", attrEventType},
	{"id", "/periods/", telemetry.AttrPeriodID},
	{"id", "/outbox/", attrOutboxEntryID},
}

// TracingConfig selects whether requests are traced and under which service name
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing starts a server span per request and annotates it with the ledger
// identifiers found in the route. Responses of 400 and above mark the span
// as failed. It returns no handlers when tracing is disabled.
//
//	engine.Use(middleware.Tracing(cfg)...)
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(cfg.ServiceName), annotateSpan}
}

func annotateSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}

	if id := GetRequestID(c); id != "" {
		span.SetAttributes(attrRequestID.String(id))
	}
	route := c.FullPath()
	for _, p := range spanParams {
		v := c.Param(p.param)
		if v == "" || !strings.Contains(route, p.segment) {
			continue
		}
		span.SetAttributes(p.key.String(v))
	}

	c.Next()

	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	desc := http.StatusText(status)
	if err := c.Errors.Last(); err != nil {
		span.RecordError(err.Err)
		desc = err.Error()
	}
	span.SetStatus(codes.Error, desc)
}
