package extraction

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// defaultVendors maps known vendor name variants to their canonical name.
// Alias order inside a slice does not matter; longer aliases are preferred
// at match time.
var defaultVendors = map[string][]string{
	"Amazon":       {"amazon", "amazon.in", "amazon pay", "amazon seller services"},
	"Flipkart":     {"flipkart", "flipkart internet"},
	"Swiggy":       {"swiggy", "bundl technologies"},
	"Zomato":       {"zomato", "zomato media", "zomato limited"},
	"Uber":         {"uber", "uber india"},
	"Ola":          {"ola cabs", "ani technologies"},
	"Myntra":       {"myntra", "myntra designs"},
	"BigBasket":    {"bigbasket", "big basket", "supermarket grocery"},
	"Reliance Jio": {"jio", "reliance jio", "jio platforms"},
	"Airtel":       {"airtel", "bharti airtel"},
	"MakeMyTrip":   {"makemytrip", "mmt"},
	"Tata Power":   {"tata power"},
	"IRCTC":        {"irctc", "indian railway catering"},
	"Netflix":      {"netflix"},
	"Spotify":      {"spotify"},
}

var legalSuffixes = regexp.MustCompile(
	`(?i)[\s,]*(?:private|pvt\.?|ltd\.?|limited|llp|inc\.?|corp\.?|co\.?)\s*$`)

var vendorLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sold\s+by\s*[:\-]?\s*([A-Za-z][A-Za-z0-9&.,'\- ]{2,60})`),
	regexp.MustCompile(`(?i)\b(?:seller|vendor|supplier|billed\s+from)\s*[:\-]?\s*([A-Za-z][A-Za-z0-9&.,'\- ]{2,60})`),
}

// VendorDictionary resolves vendor names from free text. Known vendors are
// found by alias containment; unknown vendors fall back to labeled
// "sold by / seller" extraction with legal-suffix cleanup.
type VendorDictionary struct {
	matcher   *ahocorasick.Matcher
	aliases   []string
	canonical []string
}

// NewVendorDictionary builds a dictionary from alias lists. A nil map uses
// the built-in set of common Indian merchants.
func NewVendorDictionary(vendors map[string][]string) *VendorDictionary {
	if vendors == nil {
		vendors = defaultVendors
	}
	d := &VendorDictionary{}
	for name, aliases := range vendors {
		for _, alias := range aliases {
			d.aliases = append(d.aliases, strings.ToLower(alias))
			d.canonical = append(d.canonical, name)
		}
	}
	d.matcher = ahocorasick.NewStringMatcher(d.aliases)
	return d
}

// Find returns the canonical vendor name for the text, or "" when no vendor
// could be determined. Known vendors win over labeled extraction.
func (d *VendorDictionary) Find(text string) string {
	lower := strings.ToLower(text)

	if hits := d.matcher.Match([]byte(lower)); len(hits) > 0 {
		best := hits[0]
		for _, h := range hits[1:] {
			if len(d.aliases[h]) > len(d.aliases[best]) {
				best = h
			}
		}
		return d.canonical[best]
	}

	if name := labeledVendor(text); name != "" {
		// a labeled name close to a known alias resolves to the
		// canonical form, absorbing OCR misreads
		if matches := fuzzy.RankFindNormalizedFold(strings.ToLower(name), d.aliases); len(matches) > 0 {
			sort.Sort(matches)
			return d.canonical[matches[0].OriginalIndex]
		}
		return name
	}
	return ""
}

func labeledVendor(text string) string {
	for _, p := range vendorLabelPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return CleanVendorName(m[1])
		}
	}
	return ""
}

// CleanVendorName trims legal suffixes and stray punctuation from a vendor
// name. Repeated suffixes ("X Pvt Ltd") are peeled one at a time.
func CleanVendorName(name string) string {
	name = strings.TrimSpace(name)
	for {
		stripped := legalSuffixes.ReplaceAllString(name, "")
		stripped = strings.TrimRight(strings.TrimSpace(stripped), ",.")
		if stripped == name || stripped == "" {
			break
		}
		name = stripped
	}
	return name
}
