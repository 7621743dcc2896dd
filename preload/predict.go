package preload

// DefaultMaxPages bounds how far ahead pages are prepared.
const DefaultMaxPages = 5

// Predict returns the pages worth preparing after current, given the reading
// history. With no history it returns the next maxPages pages. Otherwise it
// looks ahead two minutes of reading at the average speed, at least one page
// and at most maxPages. Pages past total are never returned.
func Predict(current, total int, samples []Sample, maxPages int) []int {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	n := maxPages
	if avg, ok := averageSeconds(samples); ok && avg > 0 {
		n = max(1, min(int(60/avg*2), maxPages))
	}

	var pages []int
	for p := current + 1; p <= current+n && p < total; p++ {
		if p < 0 {
			continue
		}
		pages = append(pages, p)
	}
	return pages
}
