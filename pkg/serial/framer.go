package serial

// lineFramer accumulates raw bytes and splits out complete lines.
// Both '\n' and '\r' act as delimiters and empty segments are
// suppressed, so CRLF-terminated input yields exactly one line per
// record and blank lines never become events. The buffer grows as
// needed; a partial line is retained until its delimiter arrives or
// the stream closes.
type lineFramer struct {
	buf []byte
}

// push appends p to the buffer and returns every complete line found,
// delimiter stripped, in arrival order.
func (f *lineFramer) push(p []byte) []string {
	f.buf = append(f.buf, p...)

	var lines []string
	start := 0
	for i := 0; i < len(f.buf); i++ {
		b := f.buf[i]
		if b != '\n' && b != '\r' {
			continue
		}
		if i > start {
			lines = append(lines, string(f.buf[start:i]))
		}
		start = i + 1
	}

	if start > 0 {
		rest := copy(f.buf, f.buf[start:])
		f.buf = f.buf[:rest]
	}
	return lines
}

// flush returns the buffered partial line, if any, and resets the
// framer. Called when a stream ends so trailing unterminated data is
// not lost.
func (f *lineFramer) flush() (string, bool) {
	if len(f.buf) == 0 {
		return "", false
	}
	line := string(f.buf)
	f.buf = f.buf[:0]
	return line, true
}
