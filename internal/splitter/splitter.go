// Package splitter segments page-tagged text into overlapping word-bounded
// windows. The emitted windows are the unit of embedding and retrieval.
package splitter

import "strings"

// Page is one page of extracted text, in page order.
type Page struct {
	Number int
	Text   string
}

// Chunk is a word window tagged with the page its first appended paragraph
// came from. Overlap words seeded from the previous window adopt the new
// window's page; this matches the historical output and is kept for
// compatibility.
type Chunk struct {
	Text       string
	PageNumber int
}

// Split accumulates paragraph words into windows of at most maxWords words,
// closing a window whenever the next paragraph would overflow it and seeding
// the following window with the trailing overlapWords words of the closed one
// (all of it if shorter). overlapWords == 0 disables seeding. Whitespace-only
// paragraphs contribute nothing, including no page signal. A single paragraph
// longer than maxWords becomes one oversized window rather than being split.
func Split(pages []Page, maxWords, overlapWords int) []Chunk {
	var (
		chunks  []Chunk
		window  []string
		page    int
		pageSet bool
	)

	flush := func() {
		chunks = append(chunks, Chunk{
			Text:       strings.Join(window, " "),
			PageNumber: page,
		})
		if overlapWords > 0 {
			seed := window
			if len(seed) > overlapWords {
				seed = seed[len(seed)-overlapWords:]
			}
			window = append([]string(nil), seed...)
		} else {
			window = nil
		}
		pageSet = false
	}

	for _, p := range pages {
		for _, paragraph := range strings.Split(p.Text, "\n") {
			words := strings.Fields(paragraph)
			if len(words) == 0 {
				continue
			}

			if len(window)+len(words) > maxWords && len(window) > 0 {
				flush()
			}

			if !pageSet {
				page = p.Number
				pageSet = true
			}
			window = append(window, words...)
		}
	}

	if len(window) > 0 && pageSet {
		chunks = append(chunks, Chunk{
			Text:       strings.Join(window, " "),
			PageNumber: page,
		})
	}

	return chunks
}
