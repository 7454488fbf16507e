package extract

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/kalambet/internmatch/internal/profile"
)

// FromHTML extracts a draft from a saved public profile page. It reads the
// document title and the og:/description meta tags, which carry
// "Name - Headline - Company | LinkedIn" and "... Location: City ..." text.
func FromHTML(r io.Reader) (profile.Draft, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return profile.Draft{}, fmt.Errorf("parsing html: %w", err)
	}

	var title string
	meta := make(map[string]string)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = n.FirstChild.Data
				}
			case "meta":
				var key, content string
				for _, a := range n.Attr {
					switch strings.ToLower(a.Key) {
					case "property", "name":
						key = strings.ToLower(a.Val)
					case "content":
						content = a.Val
					}
				}
				if key != "" {
					if _, ok := meta[key]; !ok {
						meta[key] = strings.TrimSpace(content)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var d profile.Draft
	heading := meta["og:title"]
	if heading == "" {
		heading = strings.TrimSpace(title)
	}
	heading, _, _ = strings.Cut(heading, " | ")
	parts := strings.Split(heading, " - ")
	d.Name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		d.Headline = strings.TrimSpace(strings.Join(parts[1:], " - "))
	}

	desc := meta["og:description"]
	if desc == "" {
		desc = meta["description"]
	}
	if loc := field(desc, "Location:"); loc != "" {
		d.Location = loc
	}
	if d.Headline == "" {
		d.Headline = strings.TrimSpace(desc)
	}
	return d, nil
}

// field returns the text after label up to the next "·" separator.
func field(s, label string) string {
	_, rest, ok := strings.Cut(s, label)
	if !ok {
		return ""
	}
	v, _, _ := strings.Cut(rest, "·")
	return strings.TrimSpace(v)
}
