package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Path is the archive path of the JAR manifest.
const Path = "META-INF/MANIFEST.MF"

const (
	manifestVersion = "1.0"
	maxLineBytes    = 72
)

// Encode writes a as the main section of a JAR manifest. Manifest-Version
// comes first; lines end in CRLF and are wrapped at 72 bytes with a single
// space starting each continuation line.
func (a *Attributes) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)

	version := manifestVersion
	if v, ok := a.Get(KeyManifestVersion); ok {
		version = v
	}
	writeHeader(bw, KeyManifestVersion, version)
	for _, e := range a.entries {
		if e.Key == KeyManifestVersion {
			continue
		}
		writeHeader(bw, e.Key, e.Value)
	}
	bw.WriteString("\r\n")

	return bw.Flush()
}

// Bytes returns the encoded manifest.
func (a *Attributes) Bytes() []byte {
	var buf bytes.Buffer
	_ = a.Encode(&buf)
	return buf.Bytes()
}

func writeHeader(w *bufio.Writer, key, value string) {
	line := key + ": " + value
	limit := maxLineBytes
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		w.WriteString(line[:cut])
		w.WriteString("\r\n ")
		line = line[cut:]
		// The leading space counts against the continuation line.
		limit = maxLineBytes - 1
	}
	w.WriteString(line)
	w.WriteString("\r\n")
}

// Parse reads the main section of a JAR manifest.
func Parse(r io.Reader) (*Attributes, error) {
	sc := bufio.NewScanner(r)
	a := &Attributes{}

	var key, value string
	flush := func() {
		if key != "" {
			a.Set(key, value)
		}
		key, value = "", ""
	}

	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		switch {
		case line == "":
			flush()
			return a, nil
		case strings.HasPrefix(line, " "):
			if key == "" {
				return nil, fmt.Errorf("continuation line without header: %q", line)
			}
			value += line[1:]
		default:
			flush()
			k, v, ok := strings.Cut(line, ": ")
			if !ok {
				return nil, fmt.Errorf("malformed manifest header: %q", line)
			}
			key, value = k, v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	flush()
	return a, nil
}
