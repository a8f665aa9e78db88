package herald

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/herald/views"
)

// Site renders registered pages into a static directory.
type Site struct {
	cfg       SiteConfig
	q         Querier
	templates TemplateSet
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// SiteOption configures a Site.
type SiteOption func(*Site)

// WithTemplates replaces the default template set.
func WithTemplates(ts TemplateSet) SiteOption {
	return func(s *Site) { s.templates = ts }
}

// WithSiteLogger sets the logger.
func WithSiteLogger(l *slog.Logger) SiteOption {
	return func(s *Site) { s.logger = l }
}

// NewSite creates a Site that resolves templates through q.
func NewSite(cfg SiteConfig, q Querier, opts ...SiteOption) *Site {
	cfg.setDefaults()
	s := &Site{
		cfg:       cfg,
		q:         q,
		templates: DefaultTemplates(),
		logger:    slog.Default(),
	}
	if cfg.SanitizeHTML {
		p := bluemonday.UGCPolicy()
		p.AllowStyling()
		s.sanitizer = p
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteResult describes a written site.
type WriteResult struct {
	Dir   string
	Pages int
	Files []string // slash-separated, relative to Dir, sorted
}

type renderedPage struct {
	Page
	Doc views.Document
}

// Write renders every page and replaces the output directory with the
// result. Nothing in the output directory changes unless every page renders.
func (s *Site) Write(ctx context.Context, pages []Page) (*WriteResult, error) {
	start := time.Now()
	out := filepath.Clean(s.cfg.OutputDir)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("herald: create output parent: %w", err)
	}
	staging, err := os.MkdirTemp(filepath.Dir(out), "."+filepath.Base(out)+"-")
	if err != nil {
		return nil, fmt.Errorf("herald: create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	rendered, err := s.renderPages(ctx, staging, pages)
	if err != nil {
		return nil, err
	}
	if err := s.writeExtras(ctx, staging, rendered); err != nil {
		return nil, err
	}
	files, err := listFiles(staging)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(staging, 0o755); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(out); err != nil {
		return nil, fmt.Errorf("herald: clear output dir: %w", err)
	}
	if err := os.Rename(staging, out); err != nil {
		return nil, fmt.Errorf("herald: publish output dir: %w", err)
	}

	s.logger.Info("site written", PathAttr(out), Count(len(pages)), Duration(time.Since(start)))
	return &WriteResult{Dir: out, Pages: len(pages), Files: files}, nil
}

func (s *Site) renderPages(ctx context.Context, root string, pages []Page) ([]renderedPage, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	var mu sync.Mutex
	rendered := make([]renderedPage, 0, len(pages))
	for _, p := range pages {
		g.Go(func() error {
			doc, err := s.renderPage(gctx, root, p)
			if err != nil {
				return fmt.Errorf("herald: writing %s: %w", p.Path, err)
			}
			mu.Lock()
			rendered = append(rendered, renderedPage{Page: p, Doc: doc})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(rendered, func(i, j int) bool { return rendered[i].Path < rendered[j].Path })
	return rendered, nil
}

func (s *Site) renderPage(ctx context.Context, root string, p Page) (views.Document, error) {
	tpl, err := s.templates.Lookup(p.Component)
	if err != nil {
		return views.Document{}, err
	}
	file, err := pageFile(root, p.Path)
	if err != nil {
		return views.Document{}, err
	}
	data, err := tpl.Fetch(ctx, s.q, p.Context)
	if err != nil {
		return views.Document{}, err
	}
	if s.sanitizer != nil {
		data.Node.Content = s.sanitizer.Sanitize(data.Node.Content)
	}
	if err := writeComponent(ctx, file, tpl.Render(s.cfg.viewConfig(), data)); err != nil {
		return views.Document{}, err
	}
	s.logger.Debug("page written", PathAttr(p.Path), TemplateAttr(p.Component))
	return data.Node, nil
}

// writeExtras adds everything that is not a registered page.
func (s *Site) writeExtras(ctx context.Context, root string, rendered []renderedPage) error {
	vc := s.cfg.viewConfig()

	var feed []renderedPage
	hasHome := false
	for _, r := range rendered {
		if r.Path == "/" {
			hasHome = true
		}
		if r.Component == s.cfg.primaryTemplate() {
			feed = append(feed, r)
		}
	}
	sort.SliceStable(feed, func(i, j int) bool { return feed[i].Doc.Date.After(feed[j].Doc.Date) })

	if !hasHome {
		docs := make([]views.Document, len(feed))
		for i, r := range feed {
			docs[i] = r.Doc
		}
		if err := writeComponent(ctx, filepath.Join(root, "index.html"), views.Home(vc, docs)); err != nil {
			return err
		}
	}
	if err := writeComponent(ctx, filepath.Join(root, "404.html"), views.NotFound(vc)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(root, "sitemap.xml"), func(w io.Writer) error {
		return writeSitemap(w, s.cfg.URL, rendered)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(root, "feed.xml"), func(w io.Writer) error {
		return writeFeed(w, s.cfg, feed)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(root, "robots.txt"), func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: %s\n", BuildURL(s.cfg.URL, "sitemap.xml"))
		return err
	}); err != nil {
		return err
	}

	assets, err := fs.Sub(EmbeddedAssets, "embedded")
	if err != nil {
		return err
	}
	if err := copyTree(assets, filepath.Join(root, "assets"), false); err != nil {
		return fmt.Errorf("herald: copy assets: %w", err)
	}
	// static files win over generated ones, e.g. a hand-written robots.txt
	if s.cfg.StaticDir != "" {
		if err := copyTree(os.DirFS(s.cfg.StaticDir), root, true); err != nil {
			return fmt.Errorf("herald: copy static dir: %w", err)
		}
	}
	return nil
}

// pageFile maps a page path to the file that serves it: "/a/b/" becomes
// a/b/index.html and "/a.html" stays a.html.
func pageFile(root, p string) (string, error) {
	if strings.ContainsAny(p, "?#") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidPath, p, err)
	}
	clean := path.Clean("/" + decoded)
	if clean == "/" {
		return filepath.Join(root, "index.html"), nil
	}
	if path.Ext(clean) == ".html" {
		return filepath.Join(root, filepath.FromSlash(clean)), nil
	}
	return filepath.Join(root, filepath.FromSlash(clean), "index.html"), nil
}

func writeComponent(ctx context.Context, file string, c templ.Component) error {
	return writeFile(file, func(w io.Writer) error {
		return c.Render(ctx, w)
	})
}

// writeFile refuses to replace an existing file so two pages can never
// silently share one.
func writeFile(file string, fill func(io.Writer) error) error {
	return createFile(file, os.O_EXCL, fill)
}

func createFile(file string, flag int, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|flag, 0o644)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// copyTree copies src into dst. With overwrite, existing files are replaced.
func copyTree(src fs.FS, dst string, overwrite bool) error {
	flag := os.O_EXCL
	if overwrite {
		flag = os.O_TRUNC
	}
	return fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dst, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := src.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		return createFile(target, flag, func(w io.Writer) error {
			_, err := io.Copy(w, in)
			return err
		})
	})
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}
