package textbuf

import "strings"

// Apply returns content with op applied. It never fails: positions outside the
// buffer either clamp or turn the operation into a no-op.
//
// Known behaviour kept for client compatibility:
//   - insert on a line that does not exist is dropped;
//   - a multi-line delete keeps only the start line's head, the end line's
//     tail after EndColumn is discarded;
//   - a multi-line replace leaves content unchanged.
func Apply(content string, op Op) string {
	lines := strings.Split(content, "\n")

	switch op.Kind {
	case Insert:
		if !applyInsert(lines, op.Position, op.Text) {
			return content
		}
	case Delete:
		var ok bool
		if lines, ok = applyDelete(lines, op.Range); !ok {
			return content
		}
	case Replace:
		if !applyReplace(lines, op.Range, op.Text) {
			return content
		}
	default:
		return content
	}
	return strings.Join(lines, "\n")
}

func applyInsert(lines []string, pos Position, text string) bool {
	li := pos.Line - 1
	if li < 0 || li >= len(lines) {
		return false
	}
	line := []rune(lines[li])
	col := clamp(pos.Column-1, 0, len(line))
	lines[li] = string(line[:col]) + text + string(line[col:])
	return true
}

func applyDelete(lines []string, r Range) ([]string, bool) {
	sl := r.StartLine - 1
	if sl < 0 || sl >= len(lines) {
		return lines, false
	}
	start := []rune(lines[sl])
	sc := clamp(r.StartColumn-1, 0, len(start))

	if r.SingleLine() {
		ec := clamp(r.EndColumn-1, sc, len(start))
		lines[sl] = string(start[:sc]) + string(start[ec:])
		return lines, true
	}

	lines[sl] = string(start[:sc])
	n := r.EndLine - r.StartLine
	if n <= 0 {
		return lines, true
	}
	from := sl + 1
	to := min(from+n, len(lines))
	return append(lines[:from], lines[to:]...), true
}

func applyReplace(lines []string, r Range, text string) bool {
	if !r.SingleLine() {
		return false
	}
	li := r.StartLine - 1
	if li < 0 || li >= len(lines) {
		return false
	}
	line := []rune(lines[li])
	sc := clamp(r.StartColumn-1, 0, len(line))
	ec := clamp(r.EndColumn-1, sc, len(line))
	lines[li] = string(line[:sc]) + text + string(line[ec:])
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
