package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Translations map[string]string

type Language struct {
	found bool
	tr    Translations
}

type TransPool struct {
	basePath  string
	languages map[string]*Language
	mu        sync.Mutex
}

// builtin holds the translations shipped with the binary.
var builtin = map[string]Translations{
	"ko": {
		"Please enter a title.":                                  "제목을 입력해주세요.",
		"Please write at least 10 characters.":                   "내용을 10자 이상 입력해주세요.",
		"Comment is too short.":                                  "댓글이 너무 짧습니다.",
		"Password is too long.":                                  "비밀번호가 너무 깁니다.",
		"Please choose a post or project to comment on.":         "댓글을 달 글을 선택해주세요.",
		"Request rejected.":                                      "요청이 거부되었습니다.",
		"Please wait a moment and try again. (max 3 per minute)": "잠시 후 다시 시도해주세요. (1분 최대 3회)",
		"Wrong password.":                                        "비밀번호가 틀렸습니다.",
		"Not found":                                              "찾을 수 없습니다.",
		"Internal server error":                                  "서버 오류",
	},
}

func NewTransPool(basePath string) *TransPool {
	return &TransPool{
		basePath:  basePath,
		languages: make(map[string]*Language),
	}
}

func NewLanguage(lang string) *Language {
	return &Language{
		found: false,
		tr:    make(Translations),
	}
}

func (tp *TransPool) Get(lang string) *Language {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	l, ok := tp.languages[lang]
	if !ok {
		l = tp.load(lang)
		tp.languages[lang] = l
	}
	return l
}

func (tp *TransPool) load(lang string) *Language {
	l := NewLanguage(lang)
	for k, v := range builtin[lang] {
		l.tr[k] = v
		l.found = true
	}
	if tp.basePath == "" || strings.ContainsAny(lang, `/\.`) {
		return l
	}
	b, err := os.ReadFile(filepath.Join(tp.basePath, lang+".json"))
	if err != nil {
		return l
	}
	var tr Translations
	if err := json.Unmarshal(b, &tr); err != nil {
		slog.Warn("bad translation file", "lang", lang, "err", err)
		return l
	}
	for k, v := range tr {
		l.tr[k] = v
		l.found = true
	}
	return l
}

func (l *Language) Lang(text string) string {
	if !l.found {
		// Language was not found, return the string
		return text
	}
	res, ok := l.tr[text]
	if !ok {
		// Key was not found
		return text
	}
	// Return translated string
	return res
}

// preferredLanguage picks the primary subtag of the first Accept-Language entry.
func preferredLanguage(header string) string {
	first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	if i := strings.IndexAny(first, "-_"); i >= 0 {
		first = first[:i]
	}
	return strings.ToLower(first)
}
