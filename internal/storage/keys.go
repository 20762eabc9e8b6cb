package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Object keys follow a fixed two-level namespace: the first segment is the
// owner, the second is a job identifier (or the literal "epubs" for the
// ingestion inbox), and the third is a file name.
//
//	alice/4f1c.../chapter_1.mp3
//	alice/4f1c.../metadata.json
//	alice/epubs/mybook.epub

const (
	manifestFileName = "metadata.json"
	inboxSegment     = "epubs"
)

// ChapterFileName returns the canonical file name for a 1-based chapter index.
func ChapterFileName(chapter int) string {
	return fmt.Sprintf("chapter_%d.mp3", chapter)
}

// ChapterKey returns the object key for one chapter of a job.
func ChapterKey(owner, jobID string, chapter int) string {
	return owner + "/" + jobID + "/" + ChapterFileName(chapter)
}

// ManifestKey returns the object key for a job's manifest.
func ManifestKey(owner, jobID string) string {
	return owner + "/" + jobID + "/" + manifestFileName
}

// InboxPrefix returns the ingestion inbox prefix for an owner.
func InboxPrefix(owner string) string {
	return owner + "/" + inboxSegment + "/"
}

// IsInboxKey reports whether key names an EPUB waiting in an ingestion inbox
// (owner/epubs/name.epub).
func IsInboxKey(key string) bool {
	segments := strings.Split(key, "/")
	if len(segments) != 3 {
		return false
	}
	if segments[0] == "" || segments[1] != inboxSegment {
		return false
	}
	return strings.HasSuffix(strings.ToLower(segments[2]), ".epub") && len(segments[2]) > len(".epub")
}

// ParseInboxKey splits an inbox key into owner and file name.
func ParseInboxKey(key string) (owner, name string, ok bool) {
	if !IsInboxKey(key) {
		return "", "", false
	}
	segments := strings.Split(key, "/")
	return segments[0], segments[2], true
}

// ChapterIndex extracts the 1-based index from a chapter file name. It
// returns 0 when the name does not follow the chapter_N.mp3 scheme.
func ChapterIndex(name string) int {
	trimmed := strings.TrimSuffix(name, ".mp3")
	if trimmed == name {
		return 0
	}
	trimmed = strings.TrimPrefix(trimmed, "chapter_")
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// StreamKey validates the three public path segments of a stream request and
// joins them into an object key. Segments containing separators or dot
// traversal are rejected so callers cannot escape the owner namespace, and
// only chapter audio is reachable; manifests stay behind the JSON endpoints.
func StreamKey(owner, jobID, file string) (string, error) {
	for _, segment := range []string{owner, jobID, file} {
		if !validSegment(segment) {
			return "", fmt.Errorf("invalid path segment %q", segment)
		}
	}
	if !strings.HasSuffix(strings.ToLower(file), ".mp3") {
		return "", fmt.Errorf("unsupported file %q", file)
	}
	return owner + "/" + jobID + "/" + file, nil
}

func validSegment(segment string) bool {
	if segment == "" || segment == "." || segment == ".." {
		return false
	}
	return !strings.ContainsAny(segment, "/\\")
}
