package main

import (
	"encoding/json"
	"net/http"
)

// Session collects the response of a single request and the language it is
// answered in.
type Session struct {
	rd ResponseData
	ln *Language
}

type ResponseData map[string]interface{}

func NewSession(ln *Language) *Session {
	return &Session{
		rd: NewResponseData(),
		ln: ln,
	}
}

func NewResponseData() ResponseData {
	rd := make(ResponseData)
	rd.Set("ok", true)
	return rd
}

func (s *Session) Lang(text string) string {
	return s.ln.Lang(text)
}

func (rd ResponseData) Set(name string, value interface{}) {
	rd[name] = value
}

func (s *Session) Set(name string, value interface{}) {
	s.rd.Set(name, value)
}

func (s *Session) render(w http.ResponseWriter, code int) error {
	return writeJSON(w, code, s.rd)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
