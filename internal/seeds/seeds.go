// Package seeds loads crawl seed URLs from a YAML file. Entries are
// either bare URL strings or maps with a url key; malformed entries are
// skipped rather than failing the whole file.
package seeds

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrNoSeeds indicates the file contained no usable seed URLs.
var ErrNoSeeds = errors.New("no seed urls found")

// Seed is one decoded seed entry.
type Seed struct {
	URL string `mapstructure:"url"`
}

// seedFile represents the structure of a seeds YAML file.
type seedFile struct {
	Seeds []any `yaml:"seeds"`
}

// Load reads the seed file and returns the valid, deduplicated URLs in
// file order.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	urls := collectURLs(file.Seeds)
	if len(urls) == 0 {
		return nil, ErrNoSeeds
	}

	return urls, nil
}

// collectURLs converts raw entries to validated URLs, dropping entries
// that cannot be decoded or fail validation.
func collectURLs(entries []any) []string {
	urls := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		rawURL, ok := decodeEntry(entry)
		if !ok {
			continue
		}

		if err := validateSeedURL(rawURL); err != nil {
			continue
		}

		if seen[rawURL] {
			continue
		}
		seen[rawURL] = true

		urls = append(urls, rawURL)
	}

	return urls
}

// decodeEntry extracts the URL from a bare string or a map entry.
func decodeEntry(entry any) (string, bool) {
	if rawURL, ok := entry.(string); ok {
		return rawURL, rawURL != ""
	}

	var seed Seed
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &seed,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return "", false
	}

	if decodeErr := decoder.Decode(entry); decodeErr != nil {
		return "", false
	}

	return seed.URL, seed.URL != ""
}

// validateSeedURL requires an absolute http(s) URL with a host.
func validateSeedURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("must be a valid HTTP(S) URL")
	}

	if parsed.Host == "" {
		return errors.New("must have a host")
	}

	return nil
}
