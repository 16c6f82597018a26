package scan

import (
	"regexp"
	"strings"

	"github.com/firelift/firelift/internal/model"
)

// minBodyLen is the minimal-content threshold for an extracted body. A
// shorter block is treated as a non-function (an accidental match against a
// type declaration or comment) and dropped.
const minBodyLen = 12

// Scanner recognizes trigger-style function declarations in raw source text
// against the fixed rule registry. Scanning is stateless: repeated calls on
// the same input produce the same ordered records.
type Scanner struct {
	rules []rule
}

// NewScanner returns a scanner over the built-in recognition registry.
func NewScanner() *Scanner {
	return &Scanner{rules: registry}
}

// Scan matches one file's contents against every registered rule and returns
// one FunctionRecord per recognized declaration. Unmatched text yields an
// empty slice, never an error.
//
// When multiple rules match the same exported name, the record from the more
// specific (factory) style wins; within the same style the later match
// overwrites the earlier one.
func (s *Scanner) Scan(contents, filePath string) []model.FunctionRecord {
	type entry struct {
		rec   model.FunctionRecord
		style matchStyle
	}

	var order []string
	byName := make(map[string]*entry)

	for _, r := range s.rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(contents, -1) {
			groups := submatches(contents, m)
			name := groups[0]

			rec := model.FunctionRecord{
				Name:       name,
				SourceFile: filePath,
				RawMatch:   contents[m[0]:m[1]],
			}
			r.build(&rec, groups)

			body, ok := s.locateBody(contents, m[1])
			if !ok || len(strings.TrimSpace(body)) < minBodyLen {
				continue // degenerate extraction: drop, no record
			}
			rec.Body = body

			prev, seen := byName[name]
			if !seen {
				byName[name] = &entry{rec: rec, style: r.style}
				order = append(order, name)
				continue
			}
			if r.style >= prev.style {
				prev.rec = rec
				prev.style = r.style
			}
		}
	}

	records := make([]model.FunctionRecord, 0, len(order))
	for _, name := range order {
		records = append(records, byName[name].rec)
	}
	return records
}

// locateBody finds the executable block for a declaration whose pattern match
// ends at matchEnd. Three strategies, in order:
//
//  1. Inline: the block directly following the match, provided the
//     declaration statement has not already terminated.
//  2. Companion binding: a separate "<name>Handler"-style definition, used by
//     factory authoring where the handler is passed by reference.
//  3. First reasonably sized block anywhere in the file.
func (s *Scanner) locateBody(src string, matchEnd int) (string, bool) {
	if blk, ok := ExtractBlock(src, matchEnd); ok {
		openAt := strings.Index(src[matchEnd:], blk)
		if openAt >= 0 && !strings.Contains(src[matchEnd:matchEnd+openAt], ";") {
			return blk, true
		}
	}

	// The declaration ended without an inline body; look for a companion
	// handler binding referenced by name.
	if blk, ok := s.companionBody(src, matchEnd); ok {
		return blk, true
	}

	// Last resort: first block in the file that clears the threshold.
	for start := 0; start < len(src); {
		blk, ok := ExtractBlock(src, start)
		if !ok {
			break
		}
		openAt := strings.Index(src[start:], blk)
		if len(strings.TrimSpace(blk)) >= minBodyLen {
			return blk, true
		}
		start += openAt + len(blk)
	}
	return "", false
}

// companionRef matches the handler reference inside the trigger call, e.g.
// onRequest(myHandler) or onRequest(myHandler);
var companionRef = regexp.MustCompile(`^\s*([A-Za-z_$][\w$]*)\s*\)`)

// companionBody resolves a by-reference handler argument to its definition
// block elsewhere in the file.
func (s *Scanner) companionBody(src string, matchEnd int) (string, bool) {
	m := companionRef.FindStringSubmatch(src[matchEnd:])
	if m == nil {
		return "", false
	}
	ref := m[1]

	def := regexp.MustCompile(`(?:const|let|var|function)\s+` + regexp.QuoteMeta(ref) + `\b`)
	loc := def.FindStringIndex(src)
	if loc == nil {
		return "", false
	}
	blk, ok := ExtractBlock(src, loc[1])
	if !ok {
		return "", false
	}
	return blk, true
}

// submatches materializes the capture groups (excluding the whole match) for
// a FindAllStringSubmatchIndex result. Missing optional groups come back as
// empty strings.
func submatches(src string, m []int) []string {
	groups := make([]string, 0, len(m)/2-1)
	for i := 2; i < len(m); i += 2 {
		if m[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, src[m[i]:m[i+1]])
	}
	return groups
}
