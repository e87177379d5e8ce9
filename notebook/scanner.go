package notebook

// ErrorInfo describes an error result currently displayed by a cell.
type ErrorInfo struct {
	// Text is the diagnostic payload. Empty when the error output carries
	// no payload (a malformed entry still counts as an error).
	Text string
}

// Scan reports whether the cell currently displays an error result.
//
// A cell yields a non-nil ErrorInfo iff it is a code cell, its output list
// is non-empty, and the FIRST output entry is tagged "error". Only index 0
// is inspected: an error output preceded by non-error outputs is not
// detected. That narrow contract is intentional and pinned by tests.
//
// Scan is a pure read of cell state and is safe to call repeatedly.
func Scan(c *Cell) *ErrorInfo {
	if c == nil || c.Kind() != CellCode {
		return nil
	}
	outs := c.Outputs()
	if len(outs) == 0 || outs[0].Tag != OutputError {
		return nil
	}
	return &ErrorInfo{Text: ErrorText(outs[0])}
}

// ErrorText extracts the diagnostic text of an error output. A missing
// payload is coerced to the empty string rather than treated as a failure.
func ErrorText(out Output) string {
	if out.Data == nil {
		return ""
	}
	return out.Data[StderrKey]
}
