// Package chunker splits free-form text into bounded units suitable for
// embedding. Splitting is pure and eager: the full ordered list is produced
// in one pass and fragments below the minimum length are silently dropped.
package chunker

import "strings"

const (
	// MaxChunkLen is the hard upper bound on an emitted chunk.
	MaxChunkLen = 1000

	// MinChunkLen is the minimum length of an emitted chunk. Shorter
	// fragments carry too little signal to be worth an embedding call.
	MinChunkLen = 50

	// wholeParagraphSlack lets a slightly oversized paragraph through whole
	// rather than splitting it mid-thought.
	wholeParagraphSlack = 1.2
)

// Split chunks text into pieces of at most MaxChunkLen characters, each at
// least MinChunkLen long. Paragraphs (blank-line delimited) are kept whole
// when they fit; oversized paragraphs are packed sentence by sentence, and a
// single runaway sentence is hard-split.
func Split(text string) []string {
	return split(text, MaxChunkLen, MinChunkLen)
}

func split(text string, maxLen, minLen int) []string {
	var chunks []string
	for _, para := range paragraphs(text) {
		if len(para) <= int(float64(maxLen)*wholeParagraphSlack) {
			if len(para) >= minLen {
				chunks = append(chunks, para)
			}
			continue
		}
		chunks = append(chunks, packSentences(sentences(para), maxLen, minLen)...)
	}
	return chunks
}

// paragraphs splits on runs of blank lines and trims each block.
func paragraphs(text string) []string {
	var out []string
	var cur []string

	flush := func() {
		if len(cur) == 0 {
			return
		}
		p := strings.TrimSpace(strings.Join(cur, "\n"))
		cur = cur[:0]
		if p != "" {
			out = append(out, p)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}

// sentences splits a paragraph into sentence-like runs: everything up to and
// including a run of '.', '!' or '?', with a trailing run for unterminated
// text.
func sentences(para string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(para) {
		if isTerminator(para[i]) {
			for i < len(para) && isTerminator(para[i]) {
				i++
			}
			s := strings.TrimSpace(para[start:i])
			if s != "" {
				out = append(out, s)
			}
			start = i
			continue
		}
		i++
	}
	if s := strings.TrimSpace(para[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminator(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

// packSentences greedily accumulates sentences into chunks of at most maxLen,
// flushing the accumulator whenever the next sentence would overflow it.
func packSentences(sents []string, maxLen, minLen int) []string {
	var chunks []string
	var acc string

	flush := func() {
		if len(acc) >= minLen {
			chunks = append(chunks, acc)
		}
		acc = ""
	}

	for _, s := range sents {
		if len(s) > maxLen {
			flush()
			for _, piece := range hardSplit(s, maxLen) {
				if len(piece) >= minLen {
					chunks = append(chunks, piece)
				}
			}
			continue
		}
		if acc == "" {
			acc = s
			continue
		}
		if len(acc)+1+len(s) > maxLen {
			flush()
			acc = s
			continue
		}
		acc += " " + s
	}
	flush()
	return chunks
}

// hardSplit cuts s into fixed-size substrings of at most size bytes.
func hardSplit(s string, size int) []string {
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
