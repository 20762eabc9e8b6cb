package testsupport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// BuildEPUB assembles a minimal EPUB whose spine lists the given chapter
// ids in order. Each id maps to the body text of one XHTML document.
func BuildEPUB(t testing.TB, chapters map[string]string, spine []string) []byte {
	t.Helper()

	var manifest, spineRefs strings.Builder
	for id := range chapters {
		fmt.Fprintf(&manifest, `<item id=%q href="%s.xhtml" media-type="application/xhtml+xml"/>`, id, id)
	}
	for _, id := range spine {
		fmt.Fprintf(&spineRefs, `<itemref idref=%q/>`, id)
	}
	opf := fmt.Sprintf(`<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>%s</manifest>
  <spine>%s</spine>
</package>`, manifest.String(), spineRefs.String())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("mimetype", "application/epub+zip")
	write("META-INF/container.xml", containerXML)
	write("OEBPS/content.opf", opf)
	for id, body := range chapters {
		write("OEBPS/"+id+".xhtml", fmt.Sprintf("<html><body><p>%s</p></body></html>", body))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// ChapterText returns deterministic chapter prose long enough to survive the
// default minimum-length filter.
func ChapterText(seed string) string {
	return strings.TrimSpace(strings.Repeat(seed+" tells a slightly longer part of the story. ", 8))
}
