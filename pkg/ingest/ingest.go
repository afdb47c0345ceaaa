// Package ingest normalizes source markdown and extracts the document
// structure that seeds a deck: sections from H2 headings, slide hints
// from H3 headings with their bullets and raw text.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/slidectl/slidectl/pkg/cache"
	"github.com/slidectl/slidectl/pkg/errors"
)

// StructureVersion is the version tag written to structure.json.
const StructureVersion = "1.0"

// SlideHint is one slide candidate extracted from an H3 subsection.
type SlideHint struct {
	HintID  string   `json:"hint_id" bson:"hint_id"`
	Title   string   `json:"title" bson:"title"`
	Bullets []string `json:"bullets" bson:"bullets"`
	RawText string   `json:"raw_text" bson:"raw_text"`
}

// Section groups the slide hints under one H2 heading.
type Section struct {
	SectionID string      `json:"section_id" bson:"section_id"`
	Heading   string      `json:"heading" bson:"heading"`
	Slides    []SlideHint `json:"slides_hint" bson:"slides_hint"`
}

// DocumentStructure is the extracted outline of one source document.
type DocumentStructure struct {
	Version  string    `json:"version" bson:"version"`
	DocTitle string    `json:"doc_title" bson:"doc_title"`
	Sections []Section `json:"sections" bson:"sections"`
}

var (
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
	bulletRe    = regexp.MustCompile(`^[-*+]\s+`)
	numberedRe  = regexp.MustCompile(`^\d+\.\s+`)
)

// Normalize canonicalizes markdown: unified line endings, at most one
// blank line between blocks, no trailing whitespace, and a final newline.
func Normalize(content string) string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = blankRunsRe.ReplaceAllString(normalized, "\n\n")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	normalized = strings.Join(lines, "\n")

	if !strings.HasSuffix(normalized, "\n") {
		normalized += "\n"
	}
	return normalized
}

// ExtractStructure parses normalized markdown into sections and slide
// hints. The document title is the first H1 heading; sections start at H2
// headings and slide hints at H3 headings.
func ExtractStructure(normalized string) *DocumentStructure {
	lines := strings.Split(normalized, "\n")

	docTitle := "Untitled Document"
	for _, line := range lines {
		if strings.HasPrefix(line, "# ") {
			docTitle = strings.TrimSpace(line[2:])
			break
		}
	}

	return &DocumentStructure{
		Version:  StructureVersion,
		DocTitle: docTitle,
		Sections: extractSections(lines),
	}
}

func extractSections(lines []string) []Section {
	var (
		sections   []Section
		current    *Section
		subsection []string
		sectionN   int
		hintN      int
	)

	flushHint := func() {
		if current == nil || len(subsection) == 0 {
			return
		}
		if hint, ok := slideHint(subsection, hintN); ok {
			current.Slides = append(current.Slides, hint)
			hintN++
		}
		subsection = nil
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "## "):
			flushHint()
			if current != nil {
				sections = append(sections, *current)
			}
			sectionN++
			current = &Section{
				SectionID: fmt.Sprintf("sec-%03d", sectionN),
				Heading:   strings.TrimSpace(line[3:]),
				Slides:    []SlideHint{},
			}
		case strings.HasPrefix(line, "### "):
			flushHint()
			subsection = []string{line}
		default:
			if current != nil {
				subsection = append(subsection, line)
			}
		}
	}

	flushHint()
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

// slideHint builds one hint from a subsection's lines. Subsections with no
// content produce no hint.
func slideHint(lines []string, counter int) (SlideHint, bool) {
	title := "Untitled"
	var content []string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "### "):
			title = strings.TrimSpace(line[4:])
		case strings.TrimSpace(line) != "":
			content = append(content, line)
		}
	}

	bullets := []string{}
	var rawLines []string
	for _, line := range content {
		stripped := strings.TrimSpace(line)
		switch {
		case bulletRe.MatchString(stripped):
			bullets = append(bullets, bulletRe.ReplaceAllString(stripped, ""))
		case numberedRe.MatchString(stripped):
			bullets = append(bullets, numberedRe.ReplaceAllString(stripped, ""))
		}
		rawLines = append(rawLines, line)
	}

	rawText := strings.TrimSpace(strings.Join(rawLines, "\n"))
	if rawText == "" && len(bullets) == 0 {
		return SlideHint{}, false
	}

	return SlideHint{
		HintID:  fmt.Sprintf("h-%03d", counter+1),
		Title:   title,
		Bullets: bullets,
		RawText: rawText,
	}, true
}

// Process reads, normalizes, and structures one markdown file.
func Process(inputFile string) (string, *DocumentStructure, error) {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "input file %s", inputFile)
		}
		return "", nil, err
	}

	normalized := Normalize(string(data))
	return normalized, ExtractStructure(normalized), nil
}

// SaveOutputs writes normalized.md and structure.json under dir and
// returns their paths.
func SaveOutputs(dir, normalized string, structure *DocumentStructure) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, err, "create ingest directory")
	}

	normalizedPath := filepath.Join(dir, "normalized.md")
	if err := os.WriteFile(normalizedPath, []byte(normalized), 0o644); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, err, "write normalized markdown")
	}

	data, err := json.MarshalIndent(structure, "", "  ")
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, err, "encode structure")
	}
	structurePath := filepath.Join(dir, "structure.json")
	if err := os.WriteFile(structurePath, append(data, '\n'), 0o644); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, err, "write structure")
	}

	return normalizedPath, structurePath, nil
}

// Checksums hashes each slide hint's source text, keyed by hint ID. The
// map feeds the run state so unchanged slides can be recognized across
// iterations.
func (d *DocumentStructure) Checksums() map[string]string {
	sums := make(map[string]string)
	for _, sec := range d.Sections {
		for _, hint := range sec.Slides {
			sums[hint.HintID] = cache.Hash([]byte(hint.Title + "\n" + hint.RawText))
		}
	}
	return sums
}

// LoadStructure reads a structure.json written by [SaveOutputs].
func LoadStructure(path string) (*DocumentStructure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "structure %s", path)
		}
		return nil, err
	}
	var structure DocumentStructure
	if err := json.Unmarshal(data, &structure); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse structure %s", path)
	}
	return &structure, nil
}
