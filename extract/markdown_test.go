package extract

import (
	"strings"
	"testing"
)

func TestFromMarkdown(t *testing.T) {
	s := newTestService(t, Config{})
	src := s.FromMarkdown("# Release Notes\n\nSome *emphasized* text with a [link](https://example.com).\n\n- first item\n- second item\n")

	if src.Title != "Release Notes" {
		t.Errorf("Title = %q, want Release Notes", src.Title)
	}
	for _, want := range []string{"Release Notes", "Some emphasized text with a link.", "first item", "second item"} {
		if !strings.Contains(src.Content, want) {
			t.Errorf("Content %q missing %q", src.Content, want)
		}
	}
	for _, stray := range []string{"#", "*", "[", "https://example.com"} {
		if strings.Contains(src.Content, stray) {
			t.Errorf("Content contains markdown syntax %q", stray)
		}
	}
}

func TestFromMarkdownCodeBlock(t *testing.T) {
	s := newTestService(t, Config{})
	src := s.FromMarkdown("Intro.\n\n```\nfirst line\nsecond line\n```\n")

	if !strings.Contains(src.Content, "first line\nsecond line") {
		t.Errorf("Content = %q, want literal code lines", src.Content)
	}
}

func TestFromMarkdownPlainTextPassthrough(t *testing.T) {
	s := newTestService(t, Config{})
	src := s.FromMarkdown("Just a sentence without any structure.")
	if src.Content != "Just a sentence without any structure." {
		t.Errorf("Content = %q", src.Content)
	}
}

func TestFromText(t *testing.T) {
	s := newTestService(t, Config{})
	src := s.FromText("First line here.\nMore text follows.")

	if src.Type != TypeText {
		t.Errorf("Type = %v, want text", src.Type)
	}
	if src.Title != "First line here." {
		t.Errorf("Title = %q", src.Title)
	}
	if src.Content != "First line here.\nMore text follows." {
		t.Errorf("Content = %q", src.Content)
	}
}

func TestFromTextEmpty(t *testing.T) {
	s := newTestService(t, Config{})
	if got := s.FromText("   ").Title; got != "Untitled text" {
		t.Errorf("Title = %q, want Untitled text", got)
	}
}
