package channels

import "strings"

// Split breaks text into an ordered sequence of chunks, each within the
// channel limit. Paragraphs are packed greedily; a paragraph that alone
// exceeds the limit falls back to sentence packing; a single sentence that
// alone exceeds the limit is hard-truncated with an ellipsis as a last
// resort. Chunk boundaries are deterministic and never reflow.
func (a *Adapter) Split(text, channel string) []string {
	max := configFor(channel).maxLength
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= max {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	appendPiece := func(piece, sep string) {
		runes := len([]rune(piece))
		pending := len([]rune(current.String()))
		if pending > 0 && pending+len([]rune(sep))+runes > max {
			flush()
			pending = 0
		}
		if runes > max {
			flush()
			chunks = append(chunks, truncate(piece, max))
			return
		}
		if pending > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len([]rune(paragraph)) <= max {
			appendPiece(paragraph, "\n\n")
			continue
		}
		// Paragraph alone exceeds the limit: pack its sentences instead.
		for _, sentence := range splitSentences(paragraph) {
			appendPiece(sentence, " ")
		}
	}
	flush()
	return chunks
}

// splitSentences cuts on sentence-ending punctuation followed by a space,
// keeping the punctuation with the sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) && (i+1 >= len(runes) || runes[i+1] == ' ') {
			sentence := strings.TrimSpace(b.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			b.Reset()
		}
	}
	if tail := strings.TrimSpace(b.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
