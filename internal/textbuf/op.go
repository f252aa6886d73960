// Package textbuf applies line/column edit operations to newline-delimited text.
// It is pure state-transition logic: no I/O, no locking, no history.
package textbuf

type Kind string

const (
	Insert  Kind = "insert"
	Delete  Kind = "delete"
	Replace Kind = "replace"
)

// Position is a 1-indexed cursor, as reported by browser code editors.
type Position struct {
	Line   int `json:"lineNumber"`
	Column int `json:"column"`
}

// Range is a 1-indexed span. End is exclusive on its column.
type Range struct {
	StartLine   int `json:"startLineNumber"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLineNumber"`
	EndColumn   int `json:"endColumn"`
}

// Op is a single edit. Insert uses Position; Delete and Replace use Range.
type Op struct {
	Kind     Kind     `json:"type"`
	Position Position `json:"position"`
	Range    Range    `json:"range"`
	Text     string   `json:"text,omitempty"`
}

func InsertAt(line, column int, text string) Op {
	return Op{Kind: Insert, Position: Position{Line: line, Column: column}, Text: text}
}

func DeleteRange(r Range) Op {
	return Op{Kind: Delete, Range: r}
}

func ReplaceRange(r Range, text string) Op {
	return Op{Kind: Replace, Range: r, Text: text}
}

func (r Range) SingleLine() bool { return r.StartLine == r.EndLine }
