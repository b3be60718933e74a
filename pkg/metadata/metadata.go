// Package metadata stamps generated reports with the run they came from and a content hash.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// TagStart is the start of the metadata block.
	TagStart = "<!-- METADATA_START"
	// TagEnd is the end of the metadata block.
	TagEnd = "METADATA_END -->"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata describes the catalog run a report was rendered from.
type Metadata struct {
	RunID     string
	ScrapedAt time.Time
	Products  int
	Hash      string
}

var metadataRegex = regexp.MustCompile(`(?s)<!--\s*METADATA_START\s*\n(.*?)\n\s*METADATA_END\s*-->`)

// Extract splits content into its metadata block and the remaining body.
// The body has trailing newlines trimmed so that it hashes consistently.
func Extract(content string) (*Metadata, string) {
	match := metadataRegex.FindStringSubmatch(content)
	clean := strings.TrimRight(metadataRegex.ReplaceAllString(content, ""), "\n")

	if len(match) < 2 {
		return nil, clean
	}

	meta := &Metadata{}

	for _, line := range strings.Split(match[1], "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "RUN_ID":
			meta.RunID = val
		case "SCRAPED_AT":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.ScrapedAt = t
			}
		case "PRODUCTS":
			if n, err := strconv.Atoi(val); err == nil {
				meta.Products = n
			}
		case "HASH":
			meta.Hash = val
		}
	}

	return meta, clean
}

// CalculateHash computes the SHA-256 of content without its metadata block.
func CalculateHash(content string) string {
	_, clean := Extract(content)
	hash := sha256.Sum256([]byte(clean))

	return hex.EncodeToString(hash[:])
}

// Sign replaces any metadata block in content with one built from meta and a fresh hash.
func Sign(content string, meta Metadata) string {
	_, clean := Extract(content)

	block := fmt.Sprintf("\n\n%s\nRUN_ID: %s\nSCRAPED_AT: %s\nPRODUCTS: %d\nHASH: %s\n%s",
		TagStart,
		meta.RunID,
		meta.ScrapedAt.UTC().Format(time.RFC3339),
		meta.Products,
		CalculateHash(clean),
		TagEnd)

	return clean + block
}

// Verify checks that content still matches the hash in its metadata.
func Verify(content string) (bool, error) {
	meta, clean := Extract(content)
	if meta == nil {
		return false, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return false, ErrNoHashFound
	}

	calculated := CalculateHash(clean)
	if calculated != meta.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return true, nil
}
