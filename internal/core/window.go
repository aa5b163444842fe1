package core

// contextWindowSize is how many preceding plain lines a candidate carries.
const contextWindowSize = 3

// contextWindow is a fixed-capacity ring buffer of the most recent plain
// lines. The zero value is an empty window.
type contextWindow struct {
	buf   [contextWindowSize]string
	start int
	n     int
}

// push appends line, dropping the oldest entry when full.
func (w *contextWindow) push(line string) {
	if w.n < contextWindowSize {
		w.buf[(w.start+w.n)%contextWindowSize] = line
		w.n++
		return
	}
	w.buf[w.start] = line
	w.start = (w.start + 1) % contextWindowSize
}

func (w *contextWindow) reset() {
	*w = contextWindow{}
}

// snapshot returns the buffered lines oldest first, or nil when empty.
func (w *contextWindow) snapshot() []string {
	if w.n == 0 {
		return nil
	}
	out := make([]string, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%contextWindowSize]
	}
	return out
}
