package spamfilter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxLinks      = 5
	MaxRun        = 10
	MinBodyLength = 10

	// MinCommentLength is the floor under which comments are dropped before
	// classification.
	MinCommentLength = 2
)

type Rule string

const (
	RuleKeyword    Rule = "keyword"
	RuleLinks      Rule = "links"
	RuleShort      Rule = "short"
	RuleRepetition Rule = "repetition"
)

// Keywords are the deny-listed phrases, matched case-insensitively as substrings.
var Keywords = []string{
	"카지노", "바카라", "토토", "먹튀", "베팅", "불법", "도박",
	"비트코인 투자", "forex", "주식 추천", "대출 광고",
	"클릭 하세요", "바로가기", "광고", "홍보합니다",
}

var linkPattern = regexp.MustCompile(`https?://`)

// Classifier is a fixed union of hard rules. Any rule firing marks the text as spam.
type Classifier struct {
	Keywords      []string
	MinBodyLength int
}

func New() *Classifier {
	return &Classifier{
		Keywords:      Keywords,
		MinBodyLength: MinBodyLength,
	}
}

// Classify reports whether the title and body should be quarantined.
func (c *Classifier) Classify(title, body string) bool {
	return len(c.Verdict(title, body)) > 0
}

// Verdict lists every rule that fires.
func (c *Classifier) Verdict(title, body string) []Rule {
	var fired []Rule
	text := strings.ToLower(title + " " + body)
	for _, kw := range c.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			fired = append(fired, RuleKeyword)
			break
		}
	}
	if len(linkPattern.FindAllStringIndex(text, -1)) >= MaxLinks {
		fired = append(fired, RuleLinks)
	}
	if utf8.RuneCountInString(strings.TrimSpace(body)) < c.MinBodyLength {
		fired = append(fired, RuleShort)
	}
	if longestRun(text) >= MaxRun {
		fired = append(fired, RuleRepetition)
	}
	return fired
}

// longestRun returns the longest stretch of one repeated rune. Newlines break runs.
func longestRun(s string) int {
	longest, run := 0, 0
	var prev rune = -1
	for _, r := range s {
		if r == '\n' {
			prev, run = -1, 0
			continue
		}
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
