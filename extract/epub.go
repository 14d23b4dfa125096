package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// FromEPUB extracts the readable text of an epub by walking its spine
// in reading order. Chapters that fail to open are skipped rather than
// failing the book.
func (s *Service) FromEPUB(path string) (ContentSource, error) {
	defer s.progress.Reset()

	rc, err := epub.OpenReader(path)
	if err != nil {
		return ContentSource{}, fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return ContentSource{}, fmt.Errorf("%w: epub has no rootfile", ErrNoContent)
	}
	book := rc.Rootfiles[0]

	var chapters []string
	total := len(book.Spine.Itemrefs)
	for i, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		_, text, perr := htmlToText(r)
		r.Close()
		if perr != nil || strings.TrimSpace(text) == "" {
			continue
		}
		chapters = append(chapters, text)
		s.progress.Report((i + 1) * 100 / total)
	}

	if len(chapters) == 0 {
		return ContentSource{}, fmt.Errorf("%w in epub %s", ErrNoContent, path)
	}

	title := book.Title
	if title == "" {
		title = filepath.Base(path)
	}

	s.progress.Done()
	return ContentSource{
		Type:     TypeFile,
		Title:    title,
		Content:  normalize(strings.Join(chapters, "\n\n")),
		Filename: filepath.Base(path),
		FileType: "epub",
	}, nil
}
