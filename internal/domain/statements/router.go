package statements

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/finmind-app/finmind-api/internal/domain/statements")

// ModelExtractor is the model-assisted row extraction strategy.
type ModelExtractor interface {
	Enabled() bool
	ExtractRows(ctx context.Context, text string) ([]RawRow, error)
}

// Counter records model-to-heuristic fallbacks. prometheus.Counter
// satisfies it.
type Counter interface {
	Inc()
}

// Extractor routes an uploaded statement to exactly one extraction strategy
// based on filename and content type, with the model-to-heuristic fallback
// chain inside the PDF branch.
type Extractor struct {
	model     ModelExtractor
	logger    *slog.Logger
	fallbacks Counter
}

// NewExtractor wires the format router. model may be a disabled extractor;
// the PDF branch then goes straight to the heuristic parser.
func NewExtractor(model ModelExtractor, logger *slog.Logger) *Extractor {
	return &Extractor{model: model, logger: logger}
}

// WithFallbackCounter records every model-to-heuristic fallback on c.
func (e *Extractor) WithFallbackCounter(c Counter) *Extractor {
	e.fallbacks = c
	return e
}

// Extract returns raw rows for a CSV or PDF statement, or
// ErrUnsupportedFormat for anything else. Detection is case-insensitive,
// filename first, content type second.
func (e *Extractor) Extract(ctx context.Context, filename, contentType string, data []byte) ([]RawRow, error) {
	ctx, span := tracer.Start(ctx, "statements.Extract", trace.WithAttributes(
		attribute.String("statement.filename", filename),
		attribute.Int("statement.bytes", len(data)),
	))
	defer span.End()

	name := strings.ToLower(filename)
	ctype := strings.ToLower(contentType)

	switch {
	case strings.HasSuffix(name, ".csv") || strings.Contains(ctype, "csv"):
		span.SetAttributes(attribute.String("statement.format", "csv"))
		return parseCSVRows(data)
	case strings.HasSuffix(name, ".pdf") || strings.Contains(ctype, "pdf"):
		span.SetAttributes(attribute.String("statement.format", "pdf"))
		return e.extractFromPDF(ctx, data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// extractFromPDF extracts text and tries the model strategy first. Any model
// failure, or model output that normalizes to zero transactions, falls back
// to the heuristic line parser. The model path gets a single attempt.
func (e *Extractor) extractFromPDF(ctx context.Context, data []byte) ([]RawRow, error) {
	text, err := extractPDFText(data)
	if err != nil {
		return nil, err
	}
	return e.rowsFromText(ctx, text), nil
}

// rowsFromText runs the model strategy over extracted statement text with
// the heuristic parser as the last resort.
func (e *Extractor) rowsFromText(ctx context.Context, text string) []RawRow {
	if e.model != nil && e.model.Enabled() {
		ctx, span := tracer.Start(ctx, "statements.ExtractWithModel")
		rows, err := e.model.ExtractRows(ctx, text)
		span.End()
		switch {
		case err != nil:
			e.logger.Warn("model extraction failed, falling back to line parser",
				slog.Any("error", err),
			)
			e.countFallback()
		case len(Normalize(rows)) > 0:
			return rows
		default:
			e.logger.Warn("model extraction produced no usable rows, falling back to line parser",
				slog.Int("raw_rows", len(rows)),
			)
			e.countFallback()
		}
	}

	return parseStatementLines(text)
}

func (e *Extractor) countFallback() {
	if e.fallbacks != nil {
		e.fallbacks.Inc()
	}
}
