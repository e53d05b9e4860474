package database

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/storefront/pkg/database"

// QueryTracer implements pgx.QueryTracer. Every statement becomes a client
// span and statements slower than the threshold are logged as warnings.
type QueryTracer struct {
	threshold time.Duration
	logger    *slog.Logger
	tracer    trace.Tracer
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

// NewQueryTracer creates a tracer. A zero threshold or nil logger disables
// slow query logging.
func NewQueryTracer(threshold time.Duration, logger *slog.Logger) *QueryTracer {
	return &QueryTracer{
		threshold: threshold,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	sql string
	op  string
}

// TraceQueryStart opens the span for a statement.
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := operationOf(data.SQL)
	ctx, _ = t.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.statement", data.SQL),
		),
	)
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), sql: data.SQL, op: op})
}

// TraceQueryEnd closes the span and reports slow statements.
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	span.End()

	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok || t.threshold <= 0 || t.logger == nil {
		return
	}
	if elapsed := time.Since(start.at); elapsed >= t.threshold {
		attrs := []any{
			slog.String("operation", start.op),
			slog.String("statement", start.sql),
			slog.Duration("duration", elapsed),
		}
		if data.Err != nil {
			attrs = append(attrs, slog.String("error", data.Err.Error()))
		}
		t.logger.WarnContext(ctx, "slow query detected", attrs...)
	}
}

// operationOf returns the lowercased leading SQL keyword.
func operationOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "query"
	}
	return strings.ToLower(fields[0])
}
