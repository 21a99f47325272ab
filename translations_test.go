package main

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTranslations(t *testing.T) {
	Convey("Given TranslationPool", t, func() {
		tp := NewTransPool("")
		Convey("Get gets new language", func() {
			ln := tp.Get("en")
			So(ln, ShouldNotBeNil)
			Convey("Translating works", func() {
				So(ln.Lang("test"), ShouldEqual, "test")
			})
		})
		Convey("Korean is built in", func() {
			ln := tp.Get("ko")
			So(ln.Lang("Wrong password."), ShouldEqual, "비밀번호가 틀렸습니다.")
			So(ln.Lang("untranslated"), ShouldEqual, "untranslated")
		})
	})

	Convey("Given a translations directory", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "ja.json"), []byte(`{"Not found":"見つかりません"}`), 0644), ShouldBeNil)
		tp := NewTransPool(dir)
		So(tp.Get("ja").Lang("Not found"), ShouldEqual, "見つかりません")
		So(tp.Get("../ja").Lang("Not found"), ShouldEqual, "Not found")
	})
}

func TestPreferredLanguage(t *testing.T) {
	tests := map[string]string{
		"ko-KR,ko;q=0.9,en;q=0.8": "ko",
		"en_US":                   "en",
		"":                        "",
		"KO":                      "ko",
	}
	for header, want := range tests {
		if got := preferredLanguage(header); got != want {
			t.Errorf("preferredLanguage(%q) = %q, want %q", header, got, want)
		}
	}
}
