// Package server exposes a small local web UI: an index of generated digest
// files, rendered digest pages, and a source health dashboard.
package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"newsdigest/internal/database"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server serves the digest archive and feed health pages.
type Server struct {
	db        *database.DB
	outputDir string
	pages     map[string]*template.Template
	mux       *http.ServeMux
}

// DigestFile is one generated Markdown document in the output directory.
type DigestFile struct {
	Name    string
	RelPath string
}

// New creates a server over the database and the digest output directory.
func New(db *database.DB, outputDir string) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of the base so page-level blocks do not
	// collide.
	pageNames := []string{"index.html", "digest.html", "feeds.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, outputDir: outputDir, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/digest/", s.handleDigest)
	s.mux.HandleFunc("/feeds", s.handleFeeds)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	digests, err := s.listDigests()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Digests": digests,
	})
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/digest/")
	if rel == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if !validDigestPath(rel) {
		http.NotFound(w, r)
		return
	}

	data, err := os.ReadFile(filepath.Join(s.outputDir, filepath.FromSlash(rel)))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	s.render(w, "digest.html", map[string]any{
		"Name":    filepath.Base(rel),
		"Content": string(stripFrontmatter(data)),
	})
}

func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.db.ListFeeds()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "feeds.html", map[string]any{
		"Feeds": feeds,
		"Stats": stats,
	})
}

// listDigests walks the output directory for Markdown files, newest name
// first.
func (s *Server) listDigests() ([]DigestFile, error) {
	var digests []DigestFile
	err := filepath.WalkDir(s.outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(s.outputDir, path)
		if err != nil {
			return err
		}
		digests = append(digests, DigestFile{
			Name:    d.Name(),
			RelPath: filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(digests, func(i, j int) bool { return digests[i].RelPath > digests[j].RelPath })
	return digests, nil
}

// validDigestPath rejects traversal outside the output directory.
func validDigestPath(rel string) bool {
	if !strings.HasSuffix(rel, ".md") {
		return false
	}
	if strings.Contains(rel, "..") || strings.HasPrefix(rel, "/") {
		return false
	}
	return true
}

// stripFrontmatter removes a leading YAML frontmatter block so the body
// renders as plain Markdown.
func stripFrontmatter(data []byte) []byte {
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return data
	}
	rest := data[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end < 0 {
		return data
	}
	return rest[end+5:]
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, outputDir string, port int) error {
	srv, err := New(db, outputDir)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
