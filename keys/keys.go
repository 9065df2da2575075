// Package keys derives object storage keys for uploaded files.
package keys

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxBaseLen = 50

var disallowed = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

type Generator struct {
	Now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{Now: time.Now}
}

// GenerateKey builds "{folder}/{base}[_{uploaderID}]_{unixMillis}.{ext}".
// No collision check is made: two calls within the same millisecond with the
// same folder, name and uploader produce the same key.
func (g *Generator) GenerateKey(folder, originalName, uploaderID string) string {
	now := time.Now
	if g != nil && g.Now != nil {
		now = g.Now
	}
	return GenerateKeyAt(folder, originalName, uploaderID, now())
}

func GenerateKeyAt(folder, originalName, uploaderID string, t time.Time) string {
	base, ext := SplitName(originalName)

	var b strings.Builder
	if f := strings.Trim(folder, "/"); f != "" {
		b.WriteString(f)
		b.WriteByte('/')
	}
	b.WriteString(SanitizeBase(base))
	if uploaderID != "" {
		b.WriteByte('_')
		b.WriteString(disallowed.ReplaceAllString(uploaderID, "_"))
	}
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	if ext != "" {
		b.WriteByte('.')
		b.WriteString(ext)
	}
	return b.String()
}

// SplitName separates the extension (without the dot) from the base name.
// Directory components a browser may send are dropped.
func SplitName(name string) (base, ext string) {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return "", ""
	}
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return strings.TrimSuffix(name, "."), ""
	}
	return name[:i], disallowed.ReplaceAllString(name[i+1:], "_")
}

// SanitizeBase replaces every character outside [a-zA-Z0-9-_] with '_',
// lower-cases, and truncates to 50 characters.
func SanitizeBase(base string) string {
	s := strings.ToLower(disallowed.ReplaceAllString(base, "_"))
	if len(s) > maxBaseLen {
		s = s[:maxBaseLen]
	}
	if s == "" {
		s = "file"
	}
	return s
}
