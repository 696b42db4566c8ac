package yamldoc

import "fmt"

// ParseError reports malformed YAML input: syntax errors, undefined or
// self-referential anchors, non-string mapping keys and invalid merge
// sources. Line and Column are zero when the underlying parser did not
// report a position.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Msg    string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
	}
	return e.Msg
}

func parseErrorf(line, column int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Column: column, Msg: fmt.Sprintf(format, args...)}
}
