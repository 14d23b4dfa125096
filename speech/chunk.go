package speech

import "strings"

// DefaultMaxChunkSize is the default upper bound on the length of a
// single utterance, in characters.
const DefaultMaxChunkSize = 32000

// ChunkText splits text into utterance-sized chunks of at most maxSize
// characters. Cuts prefer the last sentence terminator (., ? or !) in
// the back half of the window, then the last space in the back half,
// and only fall back to a hard mid-word cut when a single unbreakable
// run is longer than the window. Chunks that are empty after trimming
// are dropped, so the concatenation of all chunks reconstructs the
// input up to whitespace at the cut points.
func ChunkText(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if len(text) <= maxSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > maxSize {
		window := remaining[:maxSize]
		cut := sentenceCut(window)
		if cut < 0 {
			cut = wordCut(window)
		}
		if cut < 0 {
			// Unbreakable run longer than the window; cut mid-word.
			cut = maxSize
		}

		chunk := strings.TrimSpace(remaining[:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = remaining[cut:]
	}

	if tail := strings.TrimSpace(remaining); tail != "" {
		chunks = append(chunks, tail)
	}
	return chunks
}

// sentenceCut returns the cut position just past the last sentence
// terminator in window, or -1 if none lies in the back half.
func sentenceCut(window string) int {
	last := strings.LastIndexAny(window, ".?!")
	if last < len(window)/2 {
		return -1
	}
	return last + 1
}

// wordCut returns the position of the last space in window, or -1 if
// none lies in the back half.
func wordCut(window string) int {
	last := strings.LastIndex(window, " ")
	if last < len(window)/2 {
		return -1
	}
	return last
}
