package extract

import (
	"context"
	"errors"
	"testing"
)

type fakeWord struct{ text string }

func (w fakeWord) Convert(context.Context, []byte) (string, error) {
	if w.text == "" {
		return "", errors.New("converter crashed")
	}
	return w.text, nil
}

type fakeSheets struct{ text string }

func (f fakeSheets) Read(context.Context, []byte) (string, error) {
	return f.text, nil
}

func TestFromImage(t *testing.T) {
	ocr := &fakeOCR{text: "Text found in the image"}
	s := newTestService(t, Config{OCR: ocr})

	src, err := s.FromImage(context.Background(), smallFile("photo.png"))
	if err != nil {
		t.Fatalf("FromImage() error: %v", err)
	}
	if src.Content != "Text found in the image" || src.FileType != "image" {
		t.Errorf("source = %+v", src)
	}
}

func TestFromImageWithoutOCR(t *testing.T) {
	s := newTestService(t, Config{})
	if _, err := s.FromImage(context.Background(), smallFile("photo.png")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("FromImage() error = %v, want ErrUnsupported", err)
	}
}

func TestFromImageEmptyResult(t *testing.T) {
	s := newTestService(t, Config{OCR: &fakeOCR{text: "  "}})
	if _, err := s.FromImage(context.Background(), smallFile("blank.png")); err == nil {
		t.Error("FromImage() succeeded on empty recognition")
	}
}

func TestFromWord(t *testing.T) {
	s := newTestService(t, Config{Word: fakeWord{text: "Document body"}})
	src, err := s.FromWord(context.Background(), smallFile("memo.docx"))
	if err != nil {
		t.Fatalf("FromWord() error: %v", err)
	}
	if src.Content != "Document body" || src.FileType != "word" {
		t.Errorf("source = %+v", src)
	}
}

func TestFromWordFailure(t *testing.T) {
	s := newTestService(t, Config{Word: fakeWord{}})
	if _, err := s.FromWord(context.Background(), smallFile("memo.docx")); err == nil {
		t.Error("FromWord() swallowed converter failure")
	}
}

func TestFromSpreadsheet(t *testing.T) {
	s := newTestService(t, Config{Spreadsheet: fakeSheets{text: "A1 B1\nA2 B2"}})
	src, err := s.FromSpreadsheet(context.Background(), smallFile("data.xlsx"))
	if err != nil {
		t.Fatalf("FromSpreadsheet() error: %v", err)
	}
	if src.Content != "A1 B1\nA2 B2" || src.FileType != "spreadsheet" {
		t.Errorf("source = %+v", src)
	}
}

func TestUnsupportedCollaboratorsRejectSynchronously(t *testing.T) {
	s := newTestService(t, Config{})
	if _, err := s.FromWord(context.Background(), smallFile("a.docx")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("FromWord() = %v", err)
	}
	if _, err := s.FromSpreadsheet(context.Background(), smallFile("a.xlsx")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("FromSpreadsheet() = %v", err)
	}
}

func TestNormalizeNFC(t *testing.T) {
	// e + combining acute must compose to the single-rune form.
	s := newTestService(t, Config{})
	src := s.FromText("cafe\u0301")
	if src.Content != "caf\u00e9" {
		t.Errorf("Content = %q, want NFC-composed form", src.Content)
	}
}
