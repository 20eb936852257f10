package statements

import "errors"

var (
	// ErrUnsupportedFormat is returned when a statement is neither CSV nor PDF.
	ErrUnsupportedFormat = errors.New("only PDF and CSV files are supported")

	// ErrNoReadableText is returned for PDFs with no extractable text,
	// typically scanned image-only documents.
	ErrNoReadableText = errors.New("PDF has no readable text")

	// ErrMalformedModelOutput is returned when the model response cannot be
	// parsed into a transaction array. It never reaches API callers; the PDF
	// branch falls back to the heuristic line parser instead.
	ErrMalformedModelOutput = errors.New("model output did not contain a transaction array")
)
