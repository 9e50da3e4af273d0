package ai

import (
	"strings"
	"unicode"
)

// Chunk is one piece of a split text. Concatenating Text+Sep of every
// chunk in Index order reproduces the input exactly.
type Chunk struct {
	Index int
	Text  string
	Sep   string
}

// Split cuts text into chunks of at most maxRunes characters. It prefers
// sentence ends and line breaks, then clause punctuation, then spaces. A
// word is cut only when it alone is longer than maxRunes.
func Split(text string, maxRunes int) []Chunk {
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return []Chunk{{Index: 0, Text: text}}
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + maxRunes
		if end >= len(runes) {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: string(runes[start:])})
			break
		}

		cut := start + breakPoint(runes[start:end], runes[end])

		contentEnd := cut
		for contentEnd > start && unicode.IsSpace(runes[contentEnd-1]) {
			contentEnd--
		}
		next := cut
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:contentEnd]),
			Sep:   string(runes[contentEnd:next]),
		})
		start = next
	}
	return chunks
}

// Join reassembles translated chunk texts with the original separators.
func Join(chunks []Chunk, texts []string) string {
	var b strings.Builder
	for i, c := range chunks {
		b.WriteString(texts[i])
		b.WriteString(c.Sep)
	}
	return b.String()
}

const (
	classSpace = iota
	classClause
	classSentence
	numClasses
)

// breakPoint returns the length of the best prefix of window to emit.
// next is the rune that follows the window. A stronger boundary wins only
// if it keeps at least half of the window, so chunks do not degenerate.
func breakPoint(window []rune, next rune) int {
	var best [numClasses]int
	consider := func(class, cut int) {
		if cut > best[class] {
			best[class] = cut
		}
	}

	for i, r := range window {
		after := next
		if i+1 < len(window) {
			after = window[i+1]
		}

		switch {
		case r == '\n':
			consider(classSentence, i+1)
		case isSentenceEnd(r) && (unicode.IsSpace(after) || isCJKSentenceEnd(r)):
			consider(classSentence, i+1)
		case isClauseEnd(r) && unicode.IsSpace(after):
			consider(classClause, i+1)
		case unicode.IsSpace(r):
			consider(classSpace, i)
		}
	}
	if unicode.IsSpace(next) {
		consider(classSpace, len(window))
	}

	half := len(window) / 2
	for class := classSentence; class >= classSpace; class-- {
		if best[class] > 0 && best[class] >= half {
			return best[class]
		}
	}
	for class := classSentence; class >= classSpace; class-- {
		if best[class] > 0 {
			return best[class]
		}
	}
	return len(window)
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}

func isCJKSentenceEnd(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isClauseEnd(r rune) bool {
	switch r {
	case ',', ';', ':', '，', '；', '：':
		return true
	}
	return false
}
