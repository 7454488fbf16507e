// Package extract reads profile fields out of files a user saved from
// LinkedIn: the "Save to PDF" export and a saved public profile page.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kalambet/internmatch/internal/profile"
)

// FromPDF extracts a draft from a LinkedIn PDF export.
func FromPDF(path string) (profile.Draft, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return profile.Draft{}, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return profile.Draft{}, fmt.Errorf("reading page %d: %w", i, err)
		}
		for _, row := range rows {
			var sb strings.Builder
			for _, word := range row.Content {
				sb.WriteString(word.S)
			}
			lines = append(lines, sb.String())
		}
	}
	return draftFromLines(lines), nil
}

// Section headings used by the export. The sidebar sections come first in
// reading order, followed by the header block and the main sections.
var (
	headings = map[string]bool{
		"Contact": true, "Top Skills": true, "Skills": true, "Languages": true,
		"Certifications": true, "Honors-Awards": true, "Publications": true,
		"Summary": true, "Experience": true, "Education": true,
	}
	mainHeadings = map[string]bool{"Summary": true, "Experience": true, "Education": true}

	pageFooter = regexp.MustCompile(`^Page \d+ of \d+$`)
)

// draftFromLines maps text rows of the export to a draft. The header block is
// the (up to) three rows right before the first main heading: name, headline
// and location.
func draftFromLines(raw []string) profile.Draft {
	var lines []string
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" || pageFooter.MatchString(l) {
			continue
		}
		lines = append(lines, l)
	}

	firstMain := len(lines)
	for i, l := range lines {
		if mainHeadings[l] {
			firstMain = i
			break
		}
	}

	header := make(map[int]bool)
	var headerLines []string
	for i := firstMain - 1; i >= 0 && len(headerLines) < 3; i-- {
		if headings[lines[i]] {
			break
		}
		header[i] = true
		headerLines = append([]string{lines[i]}, headerLines...)
	}

	var d profile.Draft
	if len(headerLines) > 0 {
		d.Name = headerLines[0]
	}
	if len(headerLines) > 1 {
		d.Headline = headerLines[1]
	}
	if len(headerLines) > 2 {
		d.Location = headerLines[2]
	}

	section := ""
	for i, l := range lines {
		if headings[l] {
			section = l
			continue
		}
		if header[i] {
			continue
		}
		switch section {
		case "Top Skills", "Skills":
			d.Skills = append(d.Skills, l)
		case "Education":
			d.Education = appendEducation(d.Education, l)
		}
	}
	return d
}

// appendEducation folds "Degree, Field · (2019 - 2023)" rows into the school
// row before them.
func appendEducation(edu []string, line string) []string {
	isDetail := strings.HasPrefix(line, "(") || strings.Contains(line, "·")
	if !isDetail || len(edu) == 0 {
		return append(edu, line)
	}
	detail, _, _ := strings.Cut(line, "·")
	detail = strings.TrimSpace(detail)
	if detail != "" && !strings.HasPrefix(detail, "(") {
		edu[len(edu)-1] += " - " + detail
	}
	return edu
}
