// Package moderation runs every anonymous write: rate limiting, validation, spam
// classification and persistence on creation, ownership checks on deletion.
//
// A creation request moves through received, rate_checked, validated, classified
// and persisted, and may stop at any gate. Spam is never rejected; it is stored
// with is_spam set and hidden from listings.
package moderation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vibecoder/vibecoder/credential"
	"github.com/vibecoder/vibecoder/database"
	"github.com/vibecoder/vibecoder/identity"
	"github.com/vibecoder/vibecoder/item"
	"github.com/vibecoder/vibecoder/ownership"
	"github.com/vibecoder/vibecoder/render"
	"github.com/vibecoder/vibecoder/spamfilter"
	"github.com/vibecoder/vibecoder/spamguard"
)

// Submission holds the raw request fields of a creation. IP is already resolved
// from forwarding headers and Token is the browser's identity cookie, if any.
type Submission struct {
	IP       string
	Token    string
	Title    string
	Body     string
	Author   string
	Password string
	Category string
	Tags     string

	TechStack string
	DemoURL   string
	GithubURL string
	Thumbnail string

	ParentKind item.Kind
	ParentID   item.ID

	// Honeypot is a form field hidden from people; bots fill it in.
	Honeypot string
}

type Pipeline struct {
	db     database.Database
	guard  *spamguard.SpamGuard
	filter *spamfilter.Classifier
	owner  *ownership.Authority
	log    *slog.Logger
	now    func() time.Time
}

func New(db database.Database, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		db:     db,
		guard:  spamguard.New(db),
		filter: spamfilter.New(),
		owner:  ownership.New(db),
		log:    logger.With("system", "moderation"),
		now:    time.Now,
	}
}

// WithClock replaces the time source of the pipeline and its rate limiter.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	c := *p
	c.now = now
	c.guard = p.guard.WithClock(now)
	return &c
}

func normalize(sub *Submission) {
	sub.Title = strings.TrimSpace(sub.Title)
	sub.Body = strings.TrimSpace(sub.Body)
	sub.Author = strings.TrimSpace(sub.Author)
	if sub.Author == "" {
		sub.Author = item.DefaultAuthor
	}
	sub.Password = strings.TrimSpace(sub.Password)
	sub.Category = strings.TrimSpace(sub.Category)
	sub.Tags = strings.TrimSpace(sub.Tags)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// CreatePost submits a lounge post.
func (p *Pipeline) CreatePost(sub Submission) (*Result, error) {
	normalize(&sub)
	return p.create(item.KindPost, sub, func() string {
		if sub.Title == "" {
			return ReasonTitleRequired
		}
		if runeLen(sub.Body) < spamfilter.MinBodyLength {
			return ReasonContentTooShort
		}
		return ""
	}, func(it *item.Item) error {
		it.Category = sub.Category
		if it.Category == "" {
			it.Category = item.DefaultCategory
		}
		it.Tags = sub.Tags
		it.Rendered = render.Markdown(sub.Body)
		return nil
	})
}

// CreateProject submits a showcase project. Only the title is required; a bare
// description ends up quarantined rather than refused.
func (p *Pipeline) CreateProject(sub Submission) (*Result, error) {
	normalize(&sub)
	return p.create(item.KindProject, sub, func() string {
		if sub.Title == "" {
			return ReasonTitleRequired
		}
		return ""
	}, func(it *item.Item) error {
		stack := []string{}
		for _, t := range strings.Split(sub.TechStack, ",") {
			if t = strings.TrimSpace(t); t != "" {
				stack = append(stack, t)
			}
		}
		b, err := json.Marshal(stack)
		if err != nil {
			return err
		}
		it.TechStack = string(b)
		it.DemoURL = strings.TrimSpace(sub.DemoURL)
		it.GithubURL = strings.TrimSpace(sub.GithubURL)
		it.Thumbnail = strings.TrimSpace(sub.Thumbnail)
		return nil
	})
}

// CreateComment submits a comment on a post or project. Comments under
// MinCommentLength are dropped without being stored; the rest are classified like
// posts, so short comments end up quarantined.
func (p *Pipeline) CreateComment(sub Submission) (*Result, error) {
	normalize(&sub)
	sub.Title = ""
	var parentMissing bool
	res, err := p.create(item.KindComment, sub, func() string {
		if runeLen(sub.Body) < spamfilter.MinCommentLength {
			return ReasonCommentTooShort
		}
		if sub.ParentID == 0 || (sub.ParentKind != item.KindPost && sub.ParentKind != item.KindProject) {
			return ReasonParentRequired
		}
		return ""
	}, func(it *item.Item) error {
		parent, err := p.db.GetItem(sub.ParentKind, sub.ParentID)
		if errors.Is(err, database.ErrNotFound) || (err == nil && parent.IsDeleted) {
			parentMissing = true
			return errParentMissing
		}
		if err != nil {
			return err
		}
		it.ParentKind = sub.ParentKind
		it.ParentID = sub.ParentID
		it.Rendered = render.Markdown(sub.Body)
		return nil
	})
	if parentMissing {
		outcomes.WithLabelValues(string(item.ActionComment), NotFound.String()).Inc()
		return &Result{Outcome: NotFound}, nil
	}
	return res, err
}

var errParentMissing = errors.New("parent item not found")

func (p *Pipeline) create(kind item.Kind, sub Submission, validate func() string, fill func(it *item.Item) error) (*Result, error) {
	action := kind.Action()
	log := p.log.With("action", action, "ip", sub.IP)

	// received -> rate_checked
	canPost, err := p.guard.CanPost(sub.IP, action)
	if err != nil {
		return nil, err
	}
	if !canPost {
		log.Info("rate limited")
		outcomes.WithLabelValues(string(action), RateLimited.String()).Inc()
		return &Result{Outcome: RateLimited}, nil
	}

	// rate_checked -> validated
	reason := validate()
	if reason == "" && sub.Honeypot != "" {
		reason = ReasonHoneypot
	}
	if reason == "" && len(sub.Password) > credential.MaxSecretLength {
		reason = ReasonPasswordTooLong
	}
	if reason != "" {
		log.Info("validation failed", "reason", reason)
		outcomes.WithLabelValues(string(action), ValidationFailed.String()).Inc()
		return validationFailed(reason), nil
	}

	// validated -> classified
	rules := p.filter.Verdict(sub.Title, sub.Body)

	// classified -> persisted
	now := p.now()
	token := sub.Token
	if token == "" {
		token = identity.NewToken()
	}
	it := &item.Item{
		Kind:         kind,
		CreatedAt:    now,
		Title:        sub.Title,
		Body:         sub.Body,
		AuthorName:   sub.Author,
		SessionToken: token,
		ClientIP:     sub.IP,
		IsSpam:       len(rules) > 0,
	}
	if sub.Password != "" {
		if it.CredentialHash, err = credential.Hash(sub.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}
	if kind != item.KindComment {
		if it.Slug, err = p.uniqueSlug(kind, sub.Title, now); err != nil {
			return nil, err
		}
	}
	if err := fill(it); err != nil {
		return nil, err
	}

	err = p.db.Atomic(func(s database.Store) error {
		if _, err := s.AddItem(it); err != nil {
			return err
		}
		return p.guard.With(s).Record(sub.IP, action)
	})
	if err != nil {
		return nil, fmt.Errorf("persist %s: %w", kind, err)
	}

	if it.IsSpam {
		names := make([]string, len(rules))
		for i, r := range rules {
			names[i] = string(r)
			quarantined.WithLabelValues(string(r)).Inc()
		}
		log.Info("quarantined", "id", it.ID, "rules", names)
	} else {
		log.Debug("created", "id", it.ID)
	}
	outcomes.WithLabelValues(string(action), Created.String()).Inc()
	return &Result{Outcome: Created, Item: it, Token: token}, nil
}

func (p *Pipeline) uniqueSlug(kind item.Kind, title string, now time.Time) (string, error) {
	s := render.Slug(title, now)
	exists, err := p.db.SlugExists(kind, s)
	if err != nil {
		return "", err
	}
	if exists {
		s += "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	}
	return s, nil
}

// Delete soft deletes an item by id when the requester proves ownership.
func (p *Pipeline) Delete(kind item.Kind, id item.ID, token, password string) (*Result, error) {
	it, err := p.owner.DeleteByID(kind, id, token, password)
	return p.deleted(kind, it, err)
}

// DeleteBySlug soft deletes a post or project addressed by slug.
func (p *Pipeline) DeleteBySlug(kind item.Kind, slug, token, password string) (*Result, error) {
	it, err := p.owner.DeleteBySlug(kind, slug, token, password)
	return p.deleted(kind, it, err)
}

func (p *Pipeline) deleted(kind item.Kind, it *item.Item, err error) (*Result, error) {
	action := "delete_" + string(kind)
	switch {
	case errors.Is(err, database.ErrNotFound):
		outcomes.WithLabelValues(action, NotFound.String()).Inc()
		return &Result{Outcome: NotFound}, nil
	case errors.Is(err, ownership.ErrUnauthorized):
		p.log.Info("delete refused", "kind", kind, "id", it.ID)
		outcomes.WithLabelValues(action, Unauthorized.String()).Inc()
		return &Result{Outcome: Unauthorized, Item: it}, nil
	case err != nil:
		return nil, err
	}
	outcomes.WithLabelValues(action, Deleted.String()).Inc()
	return &Result{Outcome: Deleted, Item: it}, nil
}
