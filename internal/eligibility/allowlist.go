package eligibility

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultCounterparties is the curated vendor list used when no external
// allow-list source is configured.
var defaultCounterparties = []string{
	"adsparo", "fliki.ai", "foreplay.co", "www.ppspy.com", "adspy",
	"peeksta", "shopision", "pipi ads", "helium 10", "niche scraper pro",
	"midjourney", "wlspy.com", "minea (eds ag)", "klaviyo", "afterlib",
	"mpp invoice", "kalodata", "sell the trend corp", "dropship",
	"dropispy.com", "adnosaur", "lemsqzy winninghunter", "canva",
	"play.ht", "openai", "submagic.co", "invideo", "sublaunch",
	"vidyo.ai", "jasper.ai", "webflow", "cutout.pro",
	"amazon web services", "runway unlimited plan", "copyai", "jungle scout",
}

// AllowList is a set of lower-cased vendor substrings. A counterparty matches
// when it contains any entry, case-insensitively.
type AllowList struct {
	entries []string
}

// NewAllowList normalizes entries (trim, lower-case, drop blanks and duplicates).
func NewAllowList(entries []string) *AllowList {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return &AllowList{entries: out}
}

// DefaultAllowList returns the built-in vendor list.
func DefaultAllowList() *AllowList {
	return NewAllowList(defaultCounterparties)
}

// Matches reports whether counterparty contains an allow-listed substring.
// An empty counterparty never matches.
func (a *AllowList) Matches(counterparty string) bool {
	if counterparty == "" {
		return false
	}
	lower := strings.ToLower(counterparty)
	for _, e := range a.entries {
		if strings.Contains(lower, e) {
			return true
		}
	}
	return false
}

// Entries returns a copy of the normalized entries.
func (a *AllowList) Entries() []string {
	out := make([]string, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of entries.
func (a *AllowList) Len() int {
	return len(a.entries)
}

// allowListFile is the YAML layout of an allow-list document.
type allowListFile struct {
	Counterparties []string `yaml:"counterparties"`
}

// ParseAllowList decodes a YAML allow-list document.
func ParseAllowList(data []byte) (*AllowList, error) {
	var f allowListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ParseAllowList: decoding yaml: %w", err)
	}
	list := NewAllowList(f.Counterparties)
	if list.Len() == 0 {
		return nil, fmt.Errorf("ParseAllowList: no counterparties defined")
	}
	return list, nil
}

// ObjectFetcher downloads objects addressed by gs:// URIs.
type ObjectFetcher interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// LoadAllowList reads an allow-list from a local path or a gs:// URI. An empty
// source yields the built-in list.
func LoadAllowList(ctx context.Context, source string, fetcher ObjectFetcher) (*AllowList, error) {
	if source == "" {
		return DefaultAllowList(), nil
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "gs://") {
		if fetcher == nil {
			return nil, fmt.Errorf("LoadAllowList: no object fetcher for %s", source)
		}
		data, err = fetcher.FetchFromGCS(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("LoadAllowList: reading %s: %w", source, err)
	}

	return ParseAllowList(data)
}
