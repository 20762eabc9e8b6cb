// Package epub reads EPUB containers and extracts the spine documents as
// plain-text chapters ready for speech synthesis.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// ErrFormat reports a container that is not a readable EPUB.
var ErrFormat = errors.New("malformed epub")

// Chapter is one spine document reduced to plain text.
type Chapter struct {
	Title string
	Text  string
}

// Options bounds the extracted chapter text. Chapters at or below MinChars
// after stripping are dropped; text beyond MaxChars is truncated.
type Options struct {
	MinChars int
	MaxChars int
}

const containerPath = "META-INF/container.xml"

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageXML struct {
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// Extract parses an EPUB and returns its chapters in spine order. A valid
// book with no usable chapters yields an empty slice, not an error.
func Extract(data []byte, opts Options) ([]Chapter, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	opfPath, err := rootfilePath(files)
	if err != nil {
		return nil, err
	}

	var pkg packageXML
	if err := decodeXML(files, opfPath, &pkg); err != nil {
		return nil, err
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		if isDocumentType(item.MediaType) {
			hrefByID[item.ID] = item.Href
		}
	}

	opfDir := path.Dir(opfPath)
	chapters := make([]Chapter, 0, len(pkg.Spine.ItemRefs))
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}
		docPath := resolveHref(opfDir, href)
		file, ok := files[docPath]
		if !ok {
			continue
		}
		raw, err := readZipFile(file)
		if err != nil {
			continue
		}

		text := normalizeText(stripHTML(raw))
		if len([]rune(text)) <= opts.MinChars {
			continue
		}
		if max := opts.MaxChars; max > 0 {
			if runes := []rune(text); len(runes) > max {
				text = string(runes[:max])
			}
		}

		title := chapterTitle(href, len(chapters)+1)
		chapters = append(chapters, Chapter{Title: title, Text: text})
	}

	return chapters, nil
}

func rootfilePath(files map[string]*zip.File) (string, error) {
	var container containerXML
	if err := decodeXML(files, containerPath, &container); err != nil {
		return "", err
	}
	for _, rf := range container.Rootfiles {
		if strings.TrimSpace(rf.FullPath) != "" {
			return rf.FullPath, nil
		}
	}
	return "", fmt.Errorf("%w: container names no rootfile", ErrFormat)
}

func decodeXML(files map[string]*zip.File, name string, dst any) error {
	file, ok := files[name]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrFormat, name)
	}
	raw, err := readZipFile(file)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrFormat, name, err)
	}
	if err := xml.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrFormat, name, err)
	}
	return nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func isDocumentType(mediaType string) bool {
	switch mediaType {
	case "application/xhtml+xml", "text/html", "application/html":
		return true
	}
	return false
}

func resolveHref(opfDir, href string) string {
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		href = href[:i]
	}
	if opfDir == "." || opfDir == "" {
		return href
	}
	return path.Join(opfDir, href)
}

func chapterTitle(href string, ordinal int) string {
	base := path.Base(href)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		return fmt.Sprintf("Chapter %d", ordinal)
	}
	return base
}

// stripHTML drops tags, scripts, and styles and returns the visible text
// with block boundaries collapsed to spaces.
func stripHTML(raw []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(raw))
	var builder strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return builder.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			builder.Write(tokenizer.Text())
			builder.WriteByte(' ')
		}
	}
}

func skippedTag(name string) bool {
	switch name {
	case "script", "style", "head", "title":
		return true
	}
	return false
}

func normalizeText(text string) string {
	text = norm.NFC.String(text)
	return strings.Join(strings.Fields(text), " ")
}
