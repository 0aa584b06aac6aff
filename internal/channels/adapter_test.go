package channels

import (
	"strings"
	"testing"
)

func TestAdaptSMS(t *testing.T) {
	a := NewAdapter()
	text := "✅ Pedido confirmado com sucesso " + strings.Repeat("x", 300)

	out := a.Adapt(text, SMS, false)

	if n := len([]rune(out)); n > 160 {
		t.Fatalf("sms output length = %d, want <= 160", n)
	}
	if !strings.HasSuffix(out, "...") {
		t.Fatalf("truncated output must end in ellipsis: %q", out)
	}
	for _, emoji := range knownEmojis {
		if strings.Contains(out, emoji) {
			t.Fatalf("sms output contains emoji %q", emoji)
		}
	}
}

func TestAdaptPrependsAtMostOneEmoji(t *testing.T) {
	a := NewAdapter()

	// Mentions both an order cue and a money cue; only the first matching
	// family contributes.
	out := a.Adapt("Pedido pago, receita atualizada", WhatsApp, true)
	if !strings.HasPrefix(out, "📦 ") {
		t.Fatalf("expected order emoji prefix, got %q", out)
	}
	if strings.Count(out, "📦")+strings.Count(out, "💰") != 1 {
		t.Fatalf("expected exactly one prepended emoji: %q", out)
	}
}

func TestAdaptWhatsAppBold(t *testing.T) {
	a := NewAdapter()
	out := a.Adapt("resumo: **12 pedidos** hoje", WhatsApp, false)
	if strings.Contains(out, "**") {
		t.Fatalf("whatsapp bold not normalized: %q", out)
	}
	if !strings.Contains(out, "*12 pedidos*") {
		t.Fatalf("expected single-asterisk bold: %q", out)
	}
}

func TestAdaptShortTextUntouched(t *testing.T) {
	a := NewAdapter()
	out := a.Adapt("tudo certo", Web, false)
	if out != "tudo certo" {
		t.Fatalf("short text changed: %q", out)
	}
}

func TestSplitPacksParagraphs(t *testing.T) {
	a := NewAdapter()
	p1 := strings.Repeat("a", 90)
	p2 := strings.Repeat("b", 90)
	p3 := strings.Repeat("c", 50)
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	chunks := a.Split(text, SMS)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2: %q", len(chunks), chunks)
	}
	for i, chunk := range chunks {
		if n := len([]rune(chunk)); n > 160 {
			t.Fatalf("chunk %d length = %d, want <= 160", i, n)
		}
	}
	// Greedy packing: p2 and p3 fit together, p1 does not fit with p2.
	if chunks[0] != p1 {
		t.Fatalf("first chunk should be the first paragraph alone")
	}
	if !strings.Contains(chunks[1], p2) || !strings.Contains(chunks[1], p3) {
		t.Fatalf("second chunk should pack the remaining paragraphs")
	}
}

func TestSplitSentenceFallback(t *testing.T) {
	a := NewAdapter()
	s1 := "Primeira frase do resumo com bastante contexto para o lojista ler com calma."
	s2 := "Segunda frase igualmente longa sobre os pedidos de hoje no canal principal."
	s3 := "Terceira frase curta."
	text := s1 + " " + s2 + " " + s3 // one paragraph over the SMS limit

	chunks := a.Split(text, SMS)
	if len(chunks) < 2 {
		t.Fatalf("expected sentence-split chunks, got %q", chunks)
	}
	for i, chunk := range chunks {
		if n := len([]rune(chunk)); n > 160 {
			t.Fatalf("chunk %d length = %d, want <= 160", i, n)
		}
	}
	// Sentences are never split across chunks.
	joined := strings.Join(chunks, " ")
	for _, sentence := range []string{s1, s2, s3} {
		if !strings.Contains(joined, sentence) {
			t.Fatalf("sentence lost or split: %q", sentence)
		}
	}
}

func TestSplitSingleOverlongSentence(t *testing.T) {
	a := NewAdapter()
	sentence := strings.Repeat("palavra ", 40) + "fim."

	chunks := a.Split(sentence, SMS)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1 hard-truncated chunk", len(chunks))
	}
	if n := len([]rune(chunks[0])); n > 160 {
		t.Fatalf("chunk length = %d, want <= 160", n)
	}
	if !strings.HasSuffix(chunks[0], "...") {
		t.Fatalf("last-resort chunk must end in ellipsis: %q", chunks[0])
	}
}

func TestSplitDeterministic(t *testing.T) {
	a := NewAdapter()
	text := strings.Repeat("Frase um. ", 30) + "\n\n" + strings.Repeat("Frase dois. ", 30)

	first := a.Split(text, SMS)
	second := a.Split(text, SMS)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic chunk %d", i)
		}
	}
}
