package moderation

import (
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vibecoder/vibecoder/database/memory"
	"github.com/vibecoder/vibecoder/item"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	return c.t
}

func newTestPipeline() (*Pipeline, *memory.Memory, *clock) {
	db := memory.New()
	c := &clock{time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(db, nil).WithClock(c.now), db, c
}

func normalPost(ip string) Submission {
	return Submission{
		IP:       ip,
		Title:    "Hello",
		Body:     "This is a normal post of sufficient length",
		Password: "pw123",
	}
}

func TestEndToEnd(t *testing.T) {
	Convey("Given an empty community", t, func() {
		p, db, c := newTestPipeline()

		Convey("A normal post is created with a fresh identity", func() {
			res, err := p.CreatePost(normalPost("10.0.0.1"))
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, Created)
			So(res.Item.IsSpam, ShouldBeFalse)
			So(res.Token, ShouldNotBeEmpty)
			So(res.Item.SessionToken, ShouldEqual, res.Token)
			So(res.Item.AuthorName, ShouldEqual, item.DefaultAuthor)
			So(res.Item.Category, ShouldEqual, item.DefaultCategory)
			So(res.Item.CredentialHash, ShouldStartWith, "$2a$12$")
			first := res.Item

			Convey("Two more posts from the same ip pass, the fourth is throttled", func() {
				for i := 0; i < 2; i++ {
					c.t = c.t.Add(5 * time.Second)
					res, err := p.CreatePost(normalPost("10.0.0.1"))
					So(err, ShouldBeNil)
					So(res.Outcome, ShouldEqual, Created)
				}
				c.t = c.t.Add(5 * time.Second)
				res, err := p.CreatePost(normalPost("10.0.0.1"))
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, RateLimited)
				total, _ := db.CountItems(item.Query{Kind: item.KindPost})
				So(total, ShouldEqual, 3)

				Convey("Another ip is not affected", func() {
					res, err := p.CreatePost(normalPost("10.0.0.2"))
					So(err, ShouldBeNil)
					So(res.Outcome, ShouldEqual, Created)
				})

				Convey("After the window passes posting works again", func() {
					c.t = c.t.Add(time.Minute)
					res, err := p.CreatePost(normalPost("10.0.0.1"))
					So(err, ShouldBeNil)
					So(res.Outcome, ShouldEqual, Created)
				})
			})

			Convey("A wrong password without the cookie is refused", func() {
				res, err := p.Delete(item.KindPost, first.ID, "", "wrong")
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, Unauthorized)
				it, _ := db.GetItem(item.KindPost, first.ID)
				So(it.IsDeleted, ShouldBeFalse)
			})

			Convey("The right password deletes the post and hides it", func() {
				res, err := p.DeleteBySlug(item.KindPost, first.Slug, "", "pw123")
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, Deleted)
				list, _ := db.ListItems(item.Query{Kind: item.KindPost})
				So(list, ShouldBeEmpty)

				Convey("Deleting again is a no-op success", func() {
					res, err := p.DeleteBySlug(item.KindPost, first.Slug, "", "pw123")
					So(err, ShouldBeNil)
					So(res.Outcome, ShouldEqual, Deleted)
					it, _ := db.GetItem(item.KindPost, first.ID)
					So(it.IsDeleted, ShouldBeTrue)
				})
			})

			Convey("The author cookie deletes the post without a password", func() {
				res, err := p.Delete(item.KindPost, first.ID, first.SessionToken, "")
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, Deleted)
			})
		})

		Convey("An unknown item cannot be deleted", func() {
			res, err := p.Delete(item.KindPost, 42, "t", "p")
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, NotFound)
		})
	})
}

func TestQuarantine(t *testing.T) {
	Convey("Given a post with a deny-listed phrase", t, func() {
		p, db, _ := newTestPipeline()
		sub := normalPost("10.0.0.3")
		sub.Body = "오늘의 카지노 추천 사이트를 알려드립니다"
		sub.Token = "existing-token"
		res, err := p.CreatePost(sub)

		Convey("It is reported as created and keeps its identity", func() {
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, Created)
			So(res.Token, ShouldEqual, "existing-token")
		})

		Convey("It is stored as spam, hidden from listings, reachable directly", func() {
			it, err := db.GetItem(item.KindPost, res.Item.ID)
			So(err, ShouldBeNil)
			So(it.IsSpam, ShouldBeTrue)
			list, _ := db.ListItems(item.Query{Kind: item.KindPost})
			So(list, ShouldBeEmpty)
			bySlug, err := db.GetItemBySlug(item.KindPost, res.Item.Slug)
			So(err, ShouldBeNil)
			So(bySlug.ID, ShouldEqual, it.ID)
		})

		Convey("It still counts against the rate limit", func() {
			count, _ := db.CountRecords("10.0.0.3", item.ActionPost, time.Time{})
			So(count, ShouldEqual, 1)
		})
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		create func(p *Pipeline, sub Submission) (*Result, error)
		sub    Submission
		reason string
	}{
		{"post without title", (*Pipeline).CreatePost, Submission{Title: "  ", Body: "long enough body text"}, ReasonTitleRequired},
		{"post too short", (*Pipeline).CreatePost, Submission{Title: "t", Body: " short "}, ReasonContentTooShort},
		{"project without title", (*Pipeline).CreateProject, Submission{Body: "long enough body text"}, ReasonTitleRequired},
		{"comment too short", (*Pipeline).CreateComment, Submission{Body: " a ", ParentKind: item.KindPost, ParentID: 1}, ReasonCommentTooShort},
		{"comment without parent", (*Pipeline).CreateComment, Submission{Body: "nice"}, ReasonParentRequired},
		{"honeypot filled", (*Pipeline).CreatePost, Submission{Title: "t", Body: "long enough body text", Honeypot: "bot"}, ReasonHoneypot},
		{"password too long", (*Pipeline).CreatePost, Submission{Title: "t", Body: "long enough body text", Password: strings.Repeat("p", 73)}, ReasonPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, db, _ := newTestPipeline()
			tt.sub.IP = "10.0.0.9"
			res, err := tt.create(p, tt.sub)
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != ValidationFailed || res.Reason != tt.reason {
				t.Errorf("outcome = %v %q, want validation_failed %q", res.Outcome, res.Reason, tt.reason)
			}
			for _, action := range []item.Action{item.ActionPost, item.ActionProject, item.ActionComment} {
				if count, _ := db.CountRecords("10.0.0.9", action, time.Time{}); count != 0 {
					t.Errorf("rejected submission was recorded in the %s ledger", action)
				}
			}
		})
	}
}

func TestProjectsAndComments(t *testing.T) {
	Convey("Given a project submission with a short description", t, func() {
		p, db, _ := newTestPipeline()
		res, err := p.CreateProject(Submission{
			IP:        "10.0.0.4",
			Title:     "My Tool",
			Body:      "tiny",
			TechStack: "go, sqlite , ,htmx",
		})
		So(err, ShouldBeNil)

		Convey("It is created but quarantined", func() {
			So(res.Outcome, ShouldEqual, Created)
			So(res.Item.IsSpam, ShouldBeTrue)
			So(res.Item.TechStack, ShouldEqual, `["go","sqlite","htmx"]`)
		})

		Convey("Comments attach to an existing post", func() {
			post, err := p.CreatePost(normalPost("10.0.0.5"))
			So(err, ShouldBeNil)
			res, err := p.CreateComment(Submission{IP: "10.0.0.5", Body: "좋은 글 감사합니다 잘 읽었어요", ParentKind: item.KindPost, ParentID: post.Item.ID})
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, Created)
			So(res.Item.IsSpam, ShouldBeFalse)
			list, _ := db.ListItems(item.Query{Kind: item.KindComment, ParentKind: item.KindPost, ParentID: post.Item.ID})
			So(len(list), ShouldEqual, 1)

			Convey("A comment past the drop floor but under ten runes is quarantined", func() {
				res, err := p.CreateComment(Submission{IP: "10.0.0.5", Body: "좋아요", ParentKind: item.KindPost, ParentID: post.Item.ID})
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, Created)
				So(res.Item.IsSpam, ShouldBeTrue)
				list, _ := db.ListItems(item.Query{Kind: item.KindComment, ParentKind: item.KindPost, ParentID: post.Item.ID})
				So(len(list), ShouldEqual, 1)
			})
		})

		Convey("Comments on a missing parent are not found", func() {
			res, err := p.CreateComment(Submission{IP: "10.0.0.6", Body: "hello", ParentKind: item.KindPost, ParentID: 999})
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, NotFound)
			count, _ := db.CountRecords("10.0.0.6", item.ActionComment, time.Time{})
			So(count, ShouldEqual, 0)
		})
	})
}
