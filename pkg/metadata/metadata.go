// Package metadata signs exported report files with a trailing integrity
// block and verifies them later.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// TagStart is the start of the metadata block.
	TagStart = "# METADATA_START"
	// TagEnd is the end of the metadata block.
	TagEnd = "# METADATA_END"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata describes a signed report.
type Metadata struct {
	Generated time.Time
	RunID     string
	Hash      string
	Valid     bool
}

var metadataRegex = regexp.MustCompile(`(?s)\n*# METADATA_START\s*\n(.*?)\n\s*# METADATA_END\s*\n?`)

// Extract removes the metadata block from content and returns both the
// metadata and the cleaned content. The cleaned content is what gets hashed.
func Extract(content string) (*Metadata, string) {
	match := metadataRegex.FindStringSubmatch(content)
	cleanContent := metadataRegex.ReplaceAllString(content, "")
	cleanContent = strings.TrimRight(cleanContent, "\n")

	if len(match) < 2 {
		return nil, cleanContent
	}

	meta := &Metadata{}

	for line := range strings.SplitSeq(match[1], "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "VALID":
			meta.Valid = strings.EqualFold(val, "TRUE")
		case "GENERATED":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.Generated = t
			}
		case "HASH":
			meta.Hash = val
		case "RUN_ID":
			meta.RunID = val
		}
	}

	return meta, cleanContent
}

// CalculateHash computes the SHA-256 hash of content without its metadata.
func CalculateHash(content string) string {
	_, clean := Extract(content)
	hash := sha256.Sum256([]byte(clean))

	return hex.EncodeToString(hash[:])
}

// Sign replaces any metadata block with a fresh one carrying meta's run ID,
// validity and timestamp. A zero Generated time means now.
func Sign(content string, meta Metadata) string {
	_, clean := Extract(content)

	generated := meta.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	valStr := "FALSE"
	if meta.Valid {
		valStr = "TRUE"
	}

	var b strings.Builder

	b.WriteString(clean)
	b.WriteString("\n\n")
	b.WriteString(TagStart + "\n")

	if meta.RunID != "" {
		fmt.Fprintf(&b, "RUN_ID: %s\n", meta.RunID)
	}

	fmt.Fprintf(&b, "VALID: %s\nGENERATED: %s\nHASH: %s\n%s\n",
		valStr, generated.UTC().Format(time.RFC3339), CalculateHash(clean), TagEnd)

	return b.String()
}

// Verify checks that content matches the hash in its metadata.
func Verify(content string) (*Metadata, error) {
	meta, clean := Extract(content)
	if meta == nil {
		return nil, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return meta, ErrNoHashFound
	}

	calculated := CalculateHash(clean)
	if calculated != meta.Hash {
		return meta, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return meta, nil
}
