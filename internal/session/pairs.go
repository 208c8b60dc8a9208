package session

const (
	openers = "([{"
	closers = ")]}"
)

// matchPair finds the bracket under the cursor and its partner within the
// given lines. The result maps line numbers to the columns to mark.
func matchPair(lines []string, from int, cur Cursor) map[int][]int {
	idx := cur.Line - from
	if idx < 0 || idx >= len(lines) || cur.Col < 0 || cur.Col >= len(lines[idx]) {
		return nil
	}
	ch := lines[idx][cur.Col]

	var open, shut byte
	dir := 0
	for i := 0; i < len(openers); i++ {
		switch ch {
		case openers[i]:
			open, shut, dir = openers[i], closers[i], 1
		case closers[i]:
			open, shut, dir = openers[i], closers[i], -1
		}
	}
	if dir == 0 {
		return nil
	}

	depth := 0
	li, col := idx, cur.Col
	for li >= 0 && li < len(lines) {
		text := lines[li]
		for col >= 0 && col < len(text) {
			switch text[col] {
			case open:
				depth += dir
			case shut:
				depth -= dir
			}
			if depth == 0 {
				marks := map[int][]int{cur.Line: {cur.Col}}
				marks[from+li] = append(marks[from+li], col)
				return marks
			}
			col += dir
		}
		li += dir
		if li >= 0 && li < len(lines) {
			if dir > 0 {
				col = 0
			} else {
				col = len(lines[li]) - 1
			}
		}
	}
	return nil
}
