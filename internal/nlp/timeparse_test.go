package nlp

import (
	"testing"
	"time"
)

func TestParseTomorrowEvening(t *testing.T) {
	p := NewParser()
	ref := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	got, ok := p.Parse("drink coffee tomorrow at 5pm", ref, time.UTC)
	if !ok {
		t.Fatal("Parse returned false, want a resolved time")
	}
	want := time.Date(2026, 3, 13, 17, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got = %v, want %v", got, want)
	}
}

func TestParseEmptyPhrase(t *testing.T) {
	p := NewParser()
	if _, ok := p.Parse("   ", time.Now(), time.UTC); ok {
		t.Error("Parse of whitespace returned true, want false")
	}
}

func TestParseUnintelligiblePhrase(t *testing.T) {
	p := NewParser()
	if _, ok := p.Parse("florbulent zanzibar", time.Now(), time.UTC); ok {
		t.Error("Parse of nonsense returned true, want false")
	}
}
