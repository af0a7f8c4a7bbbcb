package portal

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
)

var (
	datePattern     = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2})\b`)
	quantityPattern = regexp.MustCompile(`(?i)\b(?:qty\.?:?\s*\d+|\d+(?:[.,]\d+)?\s*(?:each|ea|units?|pcs|pieces|lots?|boxes|cases))\b`)
	innerWhitespace = regexp.MustCompile(`\s+`)
	slugPattern     = regexp.MustCompile(`[^a-z0-9]+`)

	textPolicy = bluemonday.StrictPolicy()

	// bidNamespace scopes the name-based UUIDs used as bid content keys.
	bidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bidwatch/bids"))
)

// Extract runs the descriptor's rules over a page snapshot and returns the bids
// found, plus the number of rows skipped as headers or unparseable. base is the
// portal address relative links resolve against; now is the extraction time.
// portalName labels the bids; the descriptor name is used when it is empty.
func Extract(markup string, d Descriptor, portalName string, base *url.URL, now time.Time) ([]model.Bid, int) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, 0
	}

	if portalName == "" {
		portalName = d.Name
	}
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(portalName), "_"), "_")

	rows := firstMatching(doc.Selection, d.RowSelectors)
	if rows == nil {
		return nil, 0
	}

	var bids []model.Bid
	skipped := 0
	seen := make(map[string]bool)

	rows.Each(func(i int, row *goquery.Selection) {
		bid, ok := extractRow(row, d, base, now)
		if !ok {
			skipped++
			return
		}

		bid.Portal = portalName
		bid.ID = slug + "_" + uuid.NewSHA1(bidNamespace, []byte(contentKey(bid))).String()
		if seen[bid.ID] {
			bid.ID += "_" + strconv.Itoa(i)
		}
		seen[bid.ID] = true

		bids = append(bids, bid)
	})

	return bids, skipped
}

func extractRow(row *goquery.Selection, d Descriptor, base *url.URL, now time.Time) (model.Bid, bool) {
	if row.Find("th").Length() > 0 && row.Find("td").Length() == 0 {
		return model.Bid{}, false
	}

	cells := cellTexts(row, d.CellSelectors)
	if len(cells) == 0 {
		return model.Bid{}, false
	}

	title := resolveTitle(row, d.TitleSelectors, cells)
	if title == "" || utf8.RuneCountInString(title) < d.MinTitleLength {
		return model.Bid{}, false
	}
	if d.HeaderPattern != nil && d.HeaderPattern.MatchString(title) {
		return model.Bid{}, false
	}

	dates := findDates(cells, now.Location())
	posted, due := assignDates(d.DatePolicy, dates, now)

	documents, link := collectLinks(row, base)

	return model.Bid{
		PostedDate:  posted,
		DueDate:     due,
		Title:       title,
		Quantity:    findQuantity(cells),
		Description: buildDescription(cells),
		Documents:   documents,
		BidLink:     link,
	}, true
}

// firstMatching returns the first selector result with at least one node.
func firstMatching(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

func cellTexts(row *goquery.Selection, selectors []string) []string {
	cells := firstMatching(row, selectors)
	if cells == nil {
		if t := cleanText(row.Text()); t != "" {
			return []string{t}
		}
		return nil
	}

	var texts []string
	cells.Each(func(_ int, c *goquery.Selection) {
		texts = append(texts, cleanText(c.Text()))
	})
	return texts
}

func resolveTitle(row *goquery.Selection, selectors []string, cells []string) string {
	for _, sel := range selectors {
		if t := cleanText(row.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	for _, c := range cells {
		if c != "" {
			return c
		}
	}
	return ""
}

func findDates(cells []string, loc *time.Location) []time.Time {
	var dates []time.Time
	for _, c := range cells {
		for _, m := range datePattern.FindAllString(c, -1) {
			if t, ok := parseDate(m, loc); ok {
				dates = append(dates, t)
			}
		}
	}
	return dates
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range []string{"1/2/2006", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func assignDates(policy DatePolicy, dates []time.Time, now time.Time) (posted, due time.Time) {
	posted = now
	switch policy {
	case DueDateOnly:
		if len(dates) > 0 {
			due = dates[0]
		}
	case PostedThenDue:
		if len(dates) > 0 {
			posted = dates[0]
		}
		if len(dates) > 1 {
			due = dates[1]
		}
	}
	if due.IsZero() {
		due = posted.Add(model.DefaultDueWindow)
	}
	return posted, due
}

func findQuantity(cells []string) string {
	for _, c := range cells {
		if m := quantityPattern.FindString(c); m != "" {
			return m
		}
	}
	return DefaultQuantity
}

func buildDescription(cells []string) string {
	var parts []string
	for _, c := range cells {
		if utf8.RuneCountInString(c) >= MinDescriptionCellLength {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return DefaultDescription
	}
	return truncate(strings.Join(parts, " | "), MaxDescriptionLength)
}

// collectLinks returns document links and the first non-document link in the row.
func collectLinks(row *goquery.Selection, base *url.URL) ([]string, string) {
	var documents []string
	var link string
	seen := make(map[string]bool)

	row.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}

		if !isDocumentLink(href) {
			if link == "" {
				link = resolved
			}
			return
		}
		if !seen[resolved] {
			seen[resolved] = true
			documents = append(documents, resolved)
		}
	})

	if documents == nil {
		documents = []string{}
	}
	return documents, link
}

func isDocumentLink(href string) bool {
	lower := strings.ToLower(href)
	for _, token := range DocumentTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// contentKey identifies a row across runs: its title plus the bid's own link,
// or its first document when it has none. Dates stay out of the key so an
// extended due date does not turn a known bid into a new one.
func contentKey(bid model.Bid) string {
	key := strings.ToLower(bid.Title)
	switch {
	case bid.BidLink != "":
		key += "|" + bid.BidLink
	case len(bid.Documents) > 0:
		key += "|" + bid.Documents[0]
	}
	return key
}

// cleanText strips any markup left in scraped text and collapses whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}
