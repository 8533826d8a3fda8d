package sqlstore

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"playercache/pkg/platform/sentinel"
)

// start opens a span for one store operation. Spans are no-ops unless the
// host installs a tracer provider.
func (s *Store) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", s.dialect.name),
		attribute.String("db.operation", op),
	)
	return otel.Tracer("playercache/sqlstore").Start(ctx, "sqlstore."+op, trace.WithAttributes(attrs...))
}

// end records err on span unless it only reports absence.
func end(span trace.Span, err error) {
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store operation failed")
	}
	span.End()
}
