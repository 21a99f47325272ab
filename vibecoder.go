package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/feeds"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/sitemap"
	"github.com/vibecoder/vibecoder/database"
	"github.com/vibecoder/vibecoder/identity"
	"github.com/vibecoder/vibecoder/item"
	"github.com/vibecoder/vibecoder/moderation"
	"github.com/vibecoder/vibecoder/newsfeed"
)

const (
	postsPerPage    = 20
	projectsPerPage = 12
	trendsLimit     = 20
	latestProjects  = 20
	feedLimit       = 20
	sitemapLimit    = 1000
)

const (
	msgRateLimited  = "Please wait a moment and try again. (max 3 per minute)"
	msgWrongSecret  = "Wrong password."
	msgNotFound     = "Not found"
	msgServerError  = "Internal server error"
	msgBadRequest   = "Request rejected."
	siteTitle       = "VibeCoder"
	siteDescription = "Anonymous community for vibe coders"
)

var reasonMessages = map[string]string{
	moderation.ReasonTitleRequired:   "Please enter a title.",
	moderation.ReasonContentTooShort: "Please write at least 10 characters.",
	moderation.ReasonCommentTooShort: "Comment is too short.",
	moderation.ReasonPasswordTooLong: "Password is too long.",
	moderation.ReasonParentRequired:  "Please choose a post or project to comment on.",
	moderation.ReasonHoneypot:        msgBadRequest,
}

type VibeCoder struct {
	config *Config
	db     database.Database
	mod    *moderation.Pipeline
	news   *newsfeed.Cache
	tp     *TransPool
	log    *slog.Logger
}

type appHandler func(http.ResponseWriter, *http.Request) error

func NewVibeCoder(config *Config, db database.Database, logger *slog.Logger) *VibeCoder {
	if logger == nil {
		logger = slog.Default()
	}
	v := &VibeCoder{
		config: config,
		db:     db,
		mod:    moderation.New(db, logger),
		tp:     NewTransPool(config.Translations),
		log:    logger.With("system", "http"),
	}
	if config.News {
		v.news = newsfeed.New(config.NewsRefresh, logger)
	}
	return v
}

func (v *VibeCoder) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(v.logRequests)

	r.Handle("/api/lounge", appHandler(v.loungeHandler)).Methods("GET")
	r.Handle("/lounge/write", appHandler(v.writePostHandler)).Methods("POST")
	r.Handle("/lounge/{slug}", appHandler(v.postHandler)).Methods("GET")
	r.Handle("/lounge/{slug}/like", appHandler(v.likeHandler(item.KindPost))).Methods("POST")
	r.Handle("/lounge/{slug}/delete", appHandler(v.deleteHandler(item.KindPost))).Methods("POST")

	r.Handle("/api/showcase", appHandler(v.showcaseHandler)).Methods("GET")
	r.Handle("/submit", appHandler(v.submitProjectHandler)).Methods("POST")
	r.Handle("/showcase/{slug}", appHandler(v.projectHandler)).Methods("GET")
	r.Handle("/showcase/{slug}/like", appHandler(v.likeHandler(item.KindProject))).Methods("POST")
	r.Handle("/showcase/{slug}/delete", appHandler(v.deleteHandler(item.KindProject))).Methods("POST")

	r.Handle("/comment", appHandler(v.commentHandler)).Methods("POST")
	r.Handle("/comment/{id:[0-9]+}/delete", appHandler(v.deleteCommentHandler)).Methods("POST")

	r.Handle("/api/projects", appHandler(v.projectsHandler)).Methods("GET")
	r.Handle("/api/trends", appHandler(v.trendsHandler)).Methods("GET")
	r.Handle("/api/ai-news", appHandler(v.newsHandler)).Methods("GET")
	r.Handle("/api/stats", appHandler(v.statsHandler)).Methods("GET")

	r.Handle("/feed.xml", appHandler(v.feedHandler)).Methods("GET")
	r.Handle("/sitemap.xml", appHandler(v.sitemapHandler)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Static assets
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(v.config.Static)))
	return r
}

func (v *VibeCoder) Run() error {
	srv := &http.Server{
		Addr:              v.config.Server,
		Handler:           v.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		v.log.Info("starting server", "addr", v.config.Server)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	v.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (fn appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := fn(w, r); err != nil {
		var httpError *HTTPError
		if errors.As(err, &httpError) {
			if httpError.Code >= http.StatusInternalServerError {
				slog.Error("request failed", "path", r.URL.Path, "err", httpError.Err)
			}
			writeJSON(w, httpError.Code, ResponseData{"ok": false, "error": httpError.Message})
			return
		}
		if errors.Is(err, database.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ResponseData{"ok": false, "error": msgNotFound})
			return
		}
		// Default to 500 Internal Server Error
		slog.Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, ResponseData{"ok": false, "error": msgServerError})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (v *VibeCoder) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		v.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", sw.status, "took", time.Since(start))
	})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer
// address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (v *VibeCoder) session(r *http.Request) *Session {
	return NewSession(v.tp.Get(preferredLanguage(r.Header.Get("Accept-Language"))))
}

func notFound(s *Session, err error) error {
	return &HTTPError{Err: err, Message: s.Lang(msgNotFound), Code: http.StatusNotFound}
}

// respond writes the outcome of a moderation request. Quarantined items are
// answered like any other created item.
func (v *VibeCoder) respond(w http.ResponseWriter, s *Session, res *moderation.Result) error {
	switch res.Outcome {
	case moderation.Created:
		identity.Issue(w, res.Token)
		s.Set("id", res.Item.ID)
		if res.Item.Slug != "" {
			s.Set("slug", res.Item.Slug)
		}
		return s.render(w, http.StatusCreated)
	case moderation.Deleted:
		return s.render(w, http.StatusOK)
	case moderation.RateLimited:
		return &HTTPError{Message: s.Lang(msgRateLimited), Code: http.StatusTooManyRequests}
	case moderation.ValidationFailed:
		msg, ok := reasonMessages[res.Reason]
		if !ok {
			msg = msgBadRequest
		}
		return &HTTPError{Message: s.Lang(msg), Code: http.StatusBadRequest}
	case moderation.Unauthorized:
		return &HTTPError{Message: s.Lang(msgWrongSecret), Code: http.StatusForbidden}
	case moderation.NotFound:
		return notFound(s, nil)
	}
	return &HTTPError{Message: s.Lang(msgServerError), Code: http.StatusInternalServerError}
}

func (v *VibeCoder) submission(r *http.Request) moderation.Submission {
	return moderation.Submission{
		IP:        clientIP(r),
		Token:     identity.Current(r),
		Title:     r.FormValue("title"),
		Author:    r.FormValue("author"),
		Password:  r.FormValue("password"),
		Category:  r.FormValue("category"),
		Tags:      r.FormValue("tags"),
		TechStack: r.FormValue("tech_stack"),
		DemoURL:   r.FormValue("demo_url"),
		GithubURL: r.FormValue("github_url"),
		Thumbnail: r.FormValue("thumbnail"),
		Honeypot:  r.FormValue("name"),
	}
}

func (v *VibeCoder) list(s *Session, r *http.Request, name string, q item.Query) error {
	page := getPageNumber(r.URL.Query().Get("page"))
	q.Offset = page * q.Limit
	items, err := v.db.ListItems(q)
	if err != nil {
		return err
	}
	total, err := v.db.CountItems(q)
	if err != nil {
		return err
	}
	if q.Kind == item.KindProject {
		s.Set(name, projectViews(items))
	} else {
		s.Set(name, items)
	}
	s.Set("page", page+1)
	s.Set("total", total)
	s.Set("total_pages", totalPages(total, q.Limit))
	s.Set("pages", Pagination(PaginationConfig{
		page:  page + 1,
		ipp:   q.Limit,
		total: total,
		url:   r.URL.RequestURI(),
		param: "page",
	}))
	return nil
}

func (v *VibeCoder) loungeHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	err := v.list(s, r, "posts", item.Query{
		Kind:     item.KindPost,
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Limit:    postsPerPage,
	})
	if err != nil {
		return err
	}
	return s.render(w, http.StatusOK)
}

func (v *VibeCoder) showcaseHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	err := v.list(s, r, "projects", item.Query{
		Kind:          item.KindProject,
		FeaturedFirst: true,
		Limit:         projectsPerPage,
	})
	if err != nil {
		return err
	}
	return s.render(w, http.StatusOK)
}

// projectsHandler answers a bare array of the latest projects.
func (v *VibeCoder) projectsHandler(w http.ResponseWriter, r *http.Request) error {
	projects, err := v.db.ListItems(item.Query{
		Kind:  item.KindProject,
		Limit: latestProjects,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, projectViews(projects))
}

func (v *VibeCoder) trendsHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	trends, err := v.db.ListItems(item.Query{
		Kind:     item.KindPost,
		Category: item.CategoryInfo,
		Limit:    trendsLimit,
	})
	if err != nil {
		return err
	}
	s.Set("trends", trends)
	return s.render(w, http.StatusOK)
}

func (v *VibeCoder) writePostHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	sub := v.submission(r)
	sub.Body = r.FormValue("content")
	res, err := v.mod.CreatePost(sub)
	if err != nil {
		return err
	}
	return v.respond(w, s, res)
}

func (v *VibeCoder) submitProjectHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	sub := v.submission(r)
	sub.Body = r.FormValue("description")
	res, err := v.mod.CreateProject(sub)
	if err != nil {
		return err
	}
	return v.respond(w, s, res)
}

func (v *VibeCoder) commentHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	sub := v.submission(r)
	sub.Body = r.FormValue("content")
	if id, err := strconv.ParseInt(r.FormValue("post_id"), 10, 64); err == nil {
		sub.ParentKind, sub.ParentID = item.KindPost, id
	} else if id, err := strconv.ParseInt(r.FormValue("project_id"), 10, 64); err == nil {
		sub.ParentKind, sub.ParentID = item.KindProject, id
	}
	res, err := v.mod.CreateComment(sub)
	if err != nil {
		return err
	}
	return v.respond(w, s, res)
}

// visibleBySlug loads a post or project for its public page. Deleted items are
// gone; quarantined ones stay reachable by their direct link.
func (v *VibeCoder) visibleBySlug(s *Session, kind item.Kind, slug string) (*item.Item, error) {
	it, err := v.db.GetItemBySlug(kind, slug)
	if errors.Is(err, database.ErrNotFound) || (err == nil && it.IsDeleted) {
		return nil, notFound(s, err)
	}
	return it, err
}

func (v *VibeCoder) view(s *Session, r *http.Request, it *item.Item) error {
	if err := v.db.BumpViews(it.Kind, it.ID); err != nil {
		return err
	}
	if !it.IsSpam {
		it.ViewCount++
	}
	comments, err := v.db.ListItems(item.Query{
		Kind:        item.KindComment,
		ParentKind:  it.Kind,
		ParentID:    it.ID,
		OldestFirst: true,
	})
	if err != nil {
		return err
	}
	token := identity.Current(r)
	s.Set("comments", comments)
	s.Set("can_edit", token != "" && token == it.SessionToken)
	s.Set("has_password", it.HasCredential())
	return nil
}

func (v *VibeCoder) postHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	post, err := v.visibleBySlug(s, item.KindPost, mux.Vars(r)["slug"])
	if err != nil {
		return err
	}
	if err := v.view(s, r, post); err != nil {
		return err
	}
	s.Set("post", post)
	return s.render(w, http.StatusOK)
}

type projectView struct {
	item.Item
	TechStack []string `json:"tech_stack"`
}

func newProjectView(it item.Item) projectView {
	pv := projectView{Item: it, TechStack: []string{}}
	if it.TechStack != "" {
		if err := json.Unmarshal([]byte(it.TechStack), &pv.TechStack); err != nil {
			pv.TechStack = []string{}
		}
	}
	return pv
}

func projectViews(nl item.List) []projectView {
	views := make([]projectView, len(nl))
	for i := range nl {
		views[i] = newProjectView(nl[i])
	}
	return views
}

func (v *VibeCoder) projectHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	project, err := v.visibleBySlug(s, item.KindProject, mux.Vars(r)["slug"])
	if err != nil {
		return err
	}
	if err := v.view(s, r, project); err != nil {
		return err
	}
	s.Set("project", newProjectView(*project))
	return s.render(w, http.StatusOK)
}

func (v *VibeCoder) likeHandler(kind item.Kind) appHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		s := v.session(r)
		it, err := v.visibleBySlug(s, kind, mux.Vars(r)["slug"])
		if err != nil {
			return err
		}
		likes, err := v.db.BumpLikes(kind, it.ID)
		if err != nil {
			return err
		}
		s.Set("likes", likes)
		return s.render(w, http.StatusOK)
	}
}

func (v *VibeCoder) deleteHandler(kind item.Kind) appHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		s := v.session(r)
		res, err := v.mod.DeleteBySlug(kind, mux.Vars(r)["slug"], identity.Current(r), r.FormValue("password"))
		if err != nil {
			return err
		}
		return v.respond(w, s, res)
	}
}

func (v *VibeCoder) deleteCommentHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return notFound(s, err)
	}
	res, err := v.mod.Delete(item.KindComment, id, identity.Current(r), r.FormValue("password"))
	if err != nil {
		return err
	}
	return v.respond(w, s, res)
}

func (v *VibeCoder) statsHandler(w http.ResponseWriter, r *http.Request) error {
	st, err := v.db.GetStats()
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, st)
}

func (v *VibeCoder) newsHandler(w http.ResponseWriter, r *http.Request) error {
	s := v.session(r)
	news := []newsfeed.Item{}
	if v.news != nil {
		news = v.news.Get(r.Context())
	}
	s.Set("news", news)
	s.Set("count", len(news))
	return s.render(w, http.StatusOK)
}

func itemURL(base string, it *item.Item) string {
	if it.Kind == item.KindProject {
		return base + "/showcase/" + it.Slug
	}
	return base + "/lounge/" + it.Slug
}

func (v *VibeCoder) feedHandler(w http.ResponseWriter, r *http.Request) error {
	posts, err := v.db.ListItems(item.Query{Kind: item.KindPost, Limit: feedLimit})
	if err != nil {
		return err
	}
	base := baseURL(r)
	feed := &feeds.Feed{
		Title:       siteTitle,
		Link:        &feeds.Link{Href: base},
		Description: siteDescription,
		Created:     time.Now(),
	}
	for i := range posts {
		p := &posts[i]
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       p.Title,
			Link:        &feeds.Link{Href: itemURL(base, p)},
			Description: p.Rendered,
			Author:      &feeds.Author{Name: p.AuthorName},
			Created:     p.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/rss+xml")
	return feed.WriteRss(w)
}

func (v *VibeCoder) sitemapHandler(w http.ResponseWriter, r *http.Request) error {
	base := baseURL(r)
	var urlSet sitemap.URLSet
	for _, kind := range []item.Kind{item.KindPost, item.KindProject} {
		nl, err := v.db.ListItems(item.Query{Kind: kind, Limit: sitemapLimit})
		if err != nil {
			return err
		}
		for i := range nl {
			n := &nl[i]
			urlSet.URLs = append(urlSet.URLs, sitemap.URL{
				Loc:        itemURL(base, n),
				LastMod:    &n.CreatedAt,
				ChangeFreq: sitemap.Daily,
				Priority:   0.7,
			})
		}
	}
	xml, err := sitemap.Marshal(&urlSet)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml")
	_, err = w.Write(xml)
	return err
}
