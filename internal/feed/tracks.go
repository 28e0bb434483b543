package feed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var decodable = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

// Tracks expands path into the audio files to stream. A .m3u, .m3u8 or
// .pls playlist yields its local entries in order, skipping URLs, missing
// files and formats without a decoder. Anything else is a single track.
func Tracks(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".m3u" && ext != ".m3u8" && ext != ".pls" {
		return []string{path}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, errors.New("playlist is not valid UTF-8")
	}
	dir := filepath.Dir(path)

	var tracks []string
	sc := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(data, []byte("\uFEFF"))))
	for sc.Scan() {
		entry, ok := playlistEntry(strings.TrimSpace(sc.Text()), ext == ".pls")
		if !ok || strings.Contains(entry, "://") {
			continue
		}
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(dir, entry)
		}
		entry = filepath.Clean(entry)
		if info, err := os.Stat(entry); err != nil || info.IsDir() {
			continue
		}
		if decodable[strings.ToLower(filepath.Ext(entry))] {
			tracks = append(tracks, entry)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%s has no playable local tracks", filepath.Base(path))
	}
	return tracks, nil
}

// playlistEntry extracts the file reference from one playlist line.
func playlistEntry(line string, pls bool) (string, bool) {
	if line == "" {
		return "", false
	}
	if !pls {
		return strings.Trim(line, `"`), !strings.HasPrefix(line, "#")
	}
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return "", false
	}
	num, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(key)), "file")
	if !ok || num == "" || strings.Trim(num, "0123456789") != "" {
		return "", false
	}
	val = strings.TrimSpace(val)
	return val, val != ""
}
