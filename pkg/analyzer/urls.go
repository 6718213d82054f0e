package analyzer

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Extraction is deliberately permissive: anything scheme-prefixed or
// www-prefixed up to the next delimiter. Phishing URLs with raw IPs, ports,
// or embedded credentials must all survive extraction.
var urlPattern = regexp.MustCompile(`(?i)(?:(?:https?|ftp)://|www\.)[^\s<>"')]+`)

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)

// maxAnalyzedURLs bounds per-message forensics cost.
const maxAnalyzedURLs = 10

// maxDisplayURL is the display truncation length for URLs in findings.
const maxDisplayURL = 60

var shortenerHosts = map[string]bool{
	"bit.ly": true, "tinyurl.com": true, "t.co": true, "goo.gl": true,
	"ow.ly": true, "is.gd": true, "buff.ly": true, "rebrand.ly": true,
	"短.co": true, "tiny.cc": true, "lnkd.in": true, "bitly.com": true,
	"short.io": true, "s.id": true, "cli.gs": true, "v.gd": true,
}

var highRiskTLDs = map[string]bool{
	"zip": true, "mov": true, "top": true, "xyz": true, "click": true,
	"country": true, "stream": true, "gq": true, "tk": true, "ml": true,
	"ga": true, "cf": true, "work": true, "party": true, "download": true,
	"loan": true, "racing": true, "cricket": true, "science": true,
	"accountant": true,
}

var mediumRiskTLDs = map[string]bool{
	"info": true, "biz": true, "online": true, "site": true, "club": true,
	"win": true, "bid": true, "trade": true, "webcam": true, "date": true,
	"faith": true, "review": true,
}

// cyrillicConfusables are Cyrillic letters visually identical to Latin ones.
var cyrillicConfusables = []rune{'а', 'е', 'о', 'р', 'с', 'у', 'х', 'і', 'ѕ', 'һ'}

var trustedBrands = []string{
	"google", "amazon", "microsoft", "apple", "facebook", "paypal",
	"netflix", "instagram", "twitter", "linkedin", "yahoo", "ebay",
	"dropbox", "adobe", "salesforce", "bank", "chase", "wellsfargo",
	"citibank", "usbank",
}

var redirectParams = map[string]bool{
	"redirect": true, "url": true, "goto": true, "link": true,
	"next": true, "return": true,
}

// brandVariant is one suspicious derived name and the brand it imitates.
type brandVariant struct {
	variant string
	brand   string
}

// brandVariants is built once; containment of any variant in a hostname
// flags that brand. The exact brand name is never a variant of itself, so
// paypal.com stays clean while paypa1-secure.com is flagged. Kept as an
// ordered slice so the first flagged brand is deterministic.
var brandVariants = buildBrandVariants()

func buildBrandVariants() []brandVariant {
	variants := make([]brandVariant, 0, len(trustedBrands)*10)
	digitSubs := []struct{ from, to string }{
		{"o", "0"},
		{"i", "1"},
		{"l", "1"},
	}
	for _, brand := range trustedBrands {
		for _, v := range []string{
			brand + "-",
			brand + "secure",
			brand + "verify",
			brand + "login",
			brand + "account",
			"secure" + brand,
			"verify" + brand,
		} {
			variants = append(variants, brandVariant{v, brand})
		}
		for _, sub := range digitSubs {
			if v := strings.ReplaceAll(brand, sub.from, sub.to); v != brand {
				variants = append(variants, brandVariant{v, brand})
			}
		}
	}
	return variants
}

// ExtractURLs finds scheme-prefixed and www-prefixed URLs in free text,
// normalizes bare www. hits with an implicit http:// prefix, and dedupes
// preserving first-seen order.
func ExtractURLs(text string) []string {
	raw := urlPattern.FindAllString(text, -1)
	if len(raw) == 0 {
		return nil
	}

	var urls []string
	seen := make(map[string]bool, len(raw))
	for _, u := range raw {
		u = strings.TrimRight(u, ".,;:!?")
		if strings.HasPrefix(strings.ToLower(u), "www.") {
			u = "http://" + u
		}
		key := strings.ToLower(u)
		if seen[key] {
			continue
		}
		seen[key] = true
		urls = append(urls, u)
	}
	return urls
}

// AnalyzeURLs extracts URLs and applies the domain forensics battery.
// The checks are independent and additive: every check that fires contributes
// its points and its finding, and the density penalties stack on top. A clean
// URL adds nothing.
func AnalyzeURLs(text string) (int, []string) {
	urls := ExtractURLs(text)
	if len(urls) == 0 {
		return 0, nil
	}

	score := 0
	var reasons []string
	switch {
	case len(urls) >= 5:
		score += 15
		reasons = append(reasons, fmt.Sprintf("High link density: %d URLs in one message", len(urls)))
	case len(urls) >= 3:
		score += 8
		reasons = append(reasons, fmt.Sprintf("Multiple URLs in one message (%d)", len(urls)))
	}

	batch := urls
	if len(batch) > maxAnalyzedURLs {
		batch = batch[:maxAnalyzedURLs]
	}
	for _, u := range batch {
		f := inspectURL(u)
		if len(f.findings) == 0 {
			continue
		}
		score += f.riskScore
		display := displayURL(u)
		for _, finding := range f.findings {
			reasons = append(reasons, finding+": "+display)
		}
	}
	return score, reasons
}

// urlFinding is the per-URL forensics result.
type urlFinding struct {
	riskScore int
	findings  []string
}

func (f *urlFinding) add(points int, finding string) {
	f.riskScore += points
	f.findings = append(f.findings, finding)
}

func inspectURL(raw string) *urlFinding {
	f := &urlFinding{}

	u, err := url.Parse(raw)
	if err != nil {
		f.add(5, "Unparseable URL structure")
		return f
	}
	host := strings.ToLower(u.Hostname())

	if shortenerHosts[host] {
		f.add(22, "Link shortener obscures the real destination")
	}

	if isIPHost(host) {
		f.add(28, "Raw IP address instead of a domain name")
	}

	if strings.Contains(host, "xn--") {
		f.add(26, "Punycode-encoded hostname, possible homograph attack")
	}

	if containsConfusable(host) {
		f.add(24, "Cyrillic look-alike characters in hostname")
	}

	if brand := typosquattedBrand(host); brand != "" {
		f.add(30, fmt.Sprintf("Hostname imitates %s (typosquatting)", brand))
	}

	switch labels := strings.Count(host, ".") + 1; {
	case labels >= 5:
		f.add(14, "Excessive subdomain nesting")
	case labels == 4:
		f.add(8, "Deep subdomain nesting")
	}

	if tld := host[strings.LastIndex(host, ".")+1:]; highRiskTLDs[tld] {
		f.add(18, fmt.Sprintf("High-risk top-level domain .%s", tld))
	} else if mediumRiskTLDs[tld] {
		f.add(10, fmt.Sprintf("Frequently abused top-level domain .%s", tld))
	}

	switch strings.ToLower(u.Scheme) {
	case "http":
		f.add(8, "Unencrypted http link")
	case "ftp":
		f.add(12, "FTP link in message body")
	}

	if hasOddHostChars(host) {
		f.add(10, "Unexpected characters in hostname")
	}

	if port := u.Port(); port != "" && port != "80" && port != "443" && port != "8080" {
		f.add(10, fmt.Sprintf("Non-standard port %s", port))
	}

	inspectQuery(u, f)

	if len(u.Path) > 200 {
		f.add(7, "Abnormally long URL path")
	}

	if u.User != nil {
		f.add(15, "Credentials embedded in URL")
	}

	return f
}

func inspectQuery(u *url.URL, f *urlFinding) {
	q := u.Query()
	for name := range q {
		if redirectParams[strings.ToLower(name)] {
			f.add(8, "Redirect-shaped query parameter")
			break
		}
	}
	if len(q) > 10 {
		f.add(6, "Excessive query parameters")
	}
	for _, values := range q {
		found := false
		for _, v := range values {
			if strings.Contains(strings.ToLower(v), "http") {
				f.add(12, "URL embedded in query parameter")
				found = true
				break
			}
		}
		if found {
			break
		}
	}
}

func isIPHost(host string) bool {
	if ipv4Pattern.MatchString(host) {
		return true
	}
	// url.Hostname strips the brackets from IPv6 literals.
	return strings.Contains(host, ":")
}

func containsConfusable(host string) bool {
	for _, r := range host {
		for _, c := range cyrillicConfusables {
			if r == c {
				return true
			}
		}
	}
	return false
}

func typosquattedBrand(host string) string {
	for _, bv := range brandVariants {
		if strings.Contains(host, bv.variant) {
			return bv.brand
		}
	}
	return ""
}

func hasOddHostChars(host string) bool {
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '.':
		default:
			return true
		}
	}
	return false
}

func displayURL(raw string) string {
	if len(raw) > maxDisplayURL {
		return raw[:maxDisplayURL] + "..."
	}
	return raw
}
