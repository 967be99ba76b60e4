package listing

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"dirstream/internal/domain"
)

// Listing markup is untrusted and varies wildly across servers, so parsing
// never fails: malformed input degrades to a partial or empty result. Index
// pages generated by nginx/Apache wrap one entry per line inside a <pre>
// block; anything else falls back to a plain anchor walk.

var (
	preOpen  = regexp.MustCompile(`(?i)<pre(\s[^>]*)?>`)
	preClose = regexp.MustCompile(`(?i)</pre\s*>`)

	// anchorPattern captures the first anchor on a line: the href in any
	// quoting style and the visible text up to the closing tag. Lines with
	// unclosed or missing anchors simply do not match.
	anchorPattern = regexp.MustCompile(`(?i)<a\s[^>]*?href\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))[^>]*>(.*?)</a>`)

	tagPattern = regexp.MustCompile(`<[^>]*>`)
)

var modifiedLayouts = []string{
	"02-Jan-2006 15:04",
	"02-Jan-2006 15:04:05",
	"2006-01-02 15:04",
}

// Parse converts one listing page into entries, in document order. The
// current directory path anchors relative hrefs.
func Parse(htmlText, currentPath string) []domain.Entry {
	if block, ok := preBlock(htmlText); ok {
		return parsePre(block, currentPath)
	}
	return parseAnchors(htmlText, currentPath)
}

// preBlock returns the content of the first pre-formatted block. An unclosed
// block extends to the end of the document.
func preBlock(s string) (string, bool) {
	open := preOpen.FindStringIndex(s)
	if open == nil {
		return "", false
	}
	rest := s[open[1]:]
	if end := preClose.FindStringIndex(rest); end != nil {
		return rest[:end[0]], true
	}
	return rest, true
}

func parsePre(block, currentPath string) []domain.Entry {
	var entries []domain.Entry
	for _, line := range strings.Split(block, "\n") {
		entry, ok := parseLine(line, currentPath)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseLine extracts one entry from one listing line. A malformed line is
// skipped; it never aborts the remaining lines.
func parseLine(line, currentPath string) (domain.Entry, bool) {
	m := anchorPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return domain.Entry{}, false
	}

	href := strings.TrimSpace(firstSubmatch(line, m, 1, 2, 3))
	text := submatch(line, m, 4)
	if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
		return domain.Entry{}, false
	}

	href = decodeOrKeep(href)
	text = strings.TrimSpace(tagPattern.ReplaceAllString(decodeOrKeep(text), ""))
	if isParentLink(href, text) {
		return domain.Entry{}, false
	}

	isDir := strings.HasSuffix(href, "/") || strings.HasSuffix(text, "/")
	href = strings.TrimSuffix(href, "/")
	name := strings.TrimSuffix(text, "/")
	if name == "" {
		return domain.Entry{}, false
	}

	// Whatever follows the anchor is metadata: two date tokens and a final
	// size token. A two-token line reuses the clock token as the size, which
	// fails numeric parsing and yields 0; that matches the listings this was
	// built against.
	meta := strings.Fields(tagPattern.ReplaceAllString(line[m[1]:], ""))

	entryType := domain.EntryFile
	if isDir {
		entryType = domain.EntryDirectory
	}
	return domain.Entry{
		Name:     name,
		Type:     entryType,
		Size:     parseSizeToken(meta),
		Modified: parseModified(meta),
		Path:     Resolve(currentPath, href),
	}, true
}

// parseAnchors is the fallback for pages without a pre-formatted block: a
// walk over every anchor in the document. Sizes and timestamps are unknown
// there.
func parseAnchors(htmlText, currentPath string) []domain.Entry {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}

	var entries []domain.Entry
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if entry, ok := anchorEntry(n, currentPath); ok {
				entries = append(entries, entry)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return entries
}

func anchorEntry(n *html.Node, currentPath string) (domain.Entry, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = attr.Val
			break
		}
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
		return domain.Entry{}, false
	}
	if u, err := url.Parse(href); err == nil && u.Scheme != "" {
		// Externally scoped link, not an entry of this directory.
		return domain.Entry{}, false
	}

	href = decodeOrKeep(href)
	name := strings.TrimSpace(nodeText(n))
	if isParentLink(href, name) {
		return domain.Entry{}, false
	}

	isDir := strings.HasSuffix(href, "/")
	href = strings.TrimSuffix(href, "/")
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		return domain.Entry{}, false
	}

	entryType := domain.EntryFile
	if isDir {
		entryType = domain.EntryDirectory
	}
	return domain.Entry{
		Name: name,
		Type: entryType,
		Path: Resolve(currentPath, href),
	}, true
}

// nodeText concatenates all text nodes under n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

func isParentLink(href, text string) bool {
	if href == "../" || href == ".." {
		return true
	}
	return strings.Contains(strings.ToLower(text), "parent directory")
}

// decodeOrKeep URL-decodes s, keeping the raw value when decoding fails.
func decodeOrKeep(s string) string {
	if dec, err := url.PathUnescape(s); err == nil {
		return dec
	}
	return s
}

// parseModified reads the leading date tokens. It never fails; an
// unrecognized date leaves the timestamp unset.
func parseModified(fields []string) *time.Time {
	if len(fields) >= 2 {
		joined := fields[0] + " " + fields[1]
		for _, layout := range modifiedLayouts {
			if t, err := time.Parse(layout, joined); err == nil {
				return &t
			}
		}
	}
	if len(fields) >= 1 {
		if t, err := time.Parse(time.RFC3339, fields[0]); err == nil {
			return &t
		}
	}
	return nil
}

// parseSizeToken reads the trailing size token: "-" or anything non-numeric
// means the size is unknown.
func parseSizeToken(fields []string) int64 {
	if len(fields) == 0 {
		return 0
	}
	last := fields[len(fields)-1]
	if last == "-" {
		return 0
	}
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func firstSubmatch(s string, m []int, groups ...int) string {
	for _, g := range groups {
		if m[2*g] >= 0 {
			return s[m[2*g]:m[2*g+1]]
		}
	}
	return ""
}

func submatch(s string, m []int, group int) string {
	if m[2*group] < 0 {
		return ""
	}
	return s[m[2*group]:m[2*group+1]]
}
