// Package redact detects forbidden content categories in rendered layer text.
package redact

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bnema/pairchat/internal/domain"
)

const maxFragmentLen = 120

// detector returns the offending fragment and true when text matches.
type detector func(text string) (string, bool)

// Scanner checks rendered text against redaction categories. It holds only
// compiled patterns and is safe for concurrent use.
type Scanner struct {
	detectors map[domain.RedactionCategory][]detector
}

// Violation describes the first match found by Scan.
type Violation struct {
	Category domain.RedactionCategory
	Fragment string
}

var speakerWords = `(?:me|i|you|partner|my partner|he|she|they|him|her|them)`

// listBullet matches an optional list marker so that rendered fact lists are
// scanned like plain lines.
var listBullet = `(?:[-*•][ \t]+)?`

var (
	quotedSpeech = regexp.MustCompile(`(?i)\b` + speakerWords + `\s+(?:said|says|yelled|shouted|screamed|texted|wrote|told me)\s*[:,]?\s*["“][^"”]{3,}["”]`)
	speakerLine  = regexp.MustCompile(`(?im)^[ \t]*` + listBullet + speakerWords + `[ \t]*:[ \t]+\S.*$`)
	logMarker    = regexp.MustCompile(`(?i)\[(?:transcript|conflict log|argument log|fight log)\]`)

	tallyCount  = regexp.MustCompile(`(?i)\b\d+\s+times?\s+(?:this|last|in the (?:past|last))\s+(?:day|week|month|year)s?\b`)
	scoreLine   = regexp.MustCompile(`(?i)\bscore(?:board)?\s*(?:is|:|=)\s*\d+\s*(?:-|to|:)\s*\d+`)
	wrongsCount = regexp.MustCompile(`(?i)\b(?:tally|count|list)\s+of\s+(?:fights|arguments|wrongs|mistakes|broken promises)\s*[:=]?\s*\d+`)
	owedCount   = regexp.MustCompile(`(?i)\b(?:owes|owed)\s+(?:me|you|him|her|them)\s+\d+\b`)

	quizPair = regexp.MustCompile(`(?im)^[ \t]*` + listBullet + `Q\d*[ \t]*[:.)][ \t]*\S.*\r?\n[ \t]*` + listBullet + `A\d*[ \t]*[:.)][ \t]*\S.*$`)
)

func NewScanner() *Scanner {
	return &Scanner{
		detectors: map[domain.RedactionCategory][]detector{
			domain.CategoryConflictTranscript: {
				matchPattern(logMarker),
				matchPattern(quotedSpeech),
				matchRepeated(speakerLine, 2),
			},
			domain.CategoryEmotionalScorekeeping: {
				matchPattern(scoreLine),
				matchPattern(tallyCount),
				matchPattern(wrongsCount),
				matchPattern(owedCount),
			},
			domain.CategoryRawQuizAnswer: {
				matchPattern(quizPair),
			},
		},
	}
}

// Scan checks text against categories in sorted order and returns the first
// violation. Unknown categories are ignored.
func (s *Scanner) Scan(text string, categories []domain.RedactionCategory) (Violation, bool) {
	ordered := append([]domain.RedactionCategory(nil), categories...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for _, category := range ordered {
		for _, detect := range s.detectors[category] {
			if fragment, ok := detect(text); ok {
				return Violation{Category: category, Fragment: truncate(fragment)}, true
			}
		}
	}

	return Violation{}, false
}

func matchPattern(re *regexp.Regexp) detector {
	return func(text string) (string, bool) {
		loc := re.FindStringIndex(text)
		if loc == nil {
			return "", false
		}
		return text[loc[0]:loc[1]], true
	}
}

// matchRepeated fires when re matches at least n times, i.e. a multi-turn
// exchange rather than a single labelled line.
func matchRepeated(re *regexp.Regexp, n int) detector {
	return func(text string) (string, bool) {
		matches := re.FindAllString(text, n)
		if len(matches) < n {
			return "", false
		}
		return strings.Join(matches, "\n"), true
	}
}

func truncate(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if len(fragment) <= maxFragmentLen {
		return fragment
	}
	return fragment[:maxFragmentLen]
}
