package routes

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/config"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISpec []byte

const (
	docsPageCSP = "default-src 'none'; style-src 'unsafe-inline'; base-uri 'none'; form-action 'none'; frame-ancestors 'none'"
	docsSpecCSP = "default-src 'none'; base-uri 'none'; form-action 'none'; frame-ancestors 'none'"
)

var docsTemplate = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{ .Title }} {{ .Version }}</title>
  <style>
    body { margin: 0 auto; max-width: 960px; padding: 32px 16px; font-family: system-ui, sans-serif; color: #132019; }
    table { width: 100%; border-collapse: collapse; }
    th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #d8ddd6; }
    code { font-size: 0.9rem; }
    .lock { color: #1f6f4a; }
  </style>
</head>
<body>
  <h1>{{ .Title }} <small>{{ .Version }}</small></h1>
  <p>{{ .Description }}</p>
  <p>Base path <code>{{ .BasePath }}</code>. Raw document: <a href="/docs/openapi.yaml">openapi.yaml</a>.</p>
  <table>
    <tr><th>Method</th><th>Path</th><th>Summary</th><th>Auth</th></tr>
    {{- range .Endpoints }}
    <tr><td><code>{{ .Method }}</code></td><td><code>{{ .Path }}</code></td><td>{{ .Summary }}</td><td>{{ if .Auth }}<span class="lock">bearer</span>{{ end }}</td></tr>
    {{- end }}
  </table>
</body>
</html>
`))

type openAPIDocument struct {
	Info struct {
		Title       string `yaml:"title"`
		Version     string `yaml:"version"`
		Description string `yaml:"description"`
	} `yaml:"info"`
	Servers []struct {
		URL string `yaml:"url"`
	} `yaml:"servers"`
	Paths map[string]map[string]struct {
		Summary  string                `yaml:"summary"`
		Security []map[string][]string `yaml:"security"`
	} `yaml:"paths"`
}

type docsEndpoint struct {
	Method  string
	Path    string
	Summary string
	Auth    bool
}

type docsPage struct {
	Title       string
	Version     string
	Description string
	BasePath    string
	Endpoints   []docsEndpoint
}

var methodOrder = map[string]int{"get": 0, "post": 1, "put": 2, "patch": 3, "delete": 4}

// buildDocsPage flattens the embedded OpenAPI document into one row per operation.
func buildDocsPage(raw []byte) (docsPage, error) {
	var doc openAPIDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return docsPage{}, fmt.Errorf("parse openapi document: %w", err)
	}

	page := docsPage{
		Title:       doc.Info.Title,
		Version:     doc.Info.Version,
		Description: doc.Info.Description,
	}
	if len(doc.Servers) > 0 {
		page.BasePath = doc.Servers[0].URL
	}

	for path, ops := range doc.Paths {
		for method, op := range ops {
			if _, ok := methodOrder[method]; !ok {
				continue
			}
			page.Endpoints = append(page.Endpoints, docsEndpoint{
				Method:  strings.ToUpper(method),
				Path:    path,
				Summary: op.Summary,
				Auth:    len(op.Security) > 0,
			})
		}
	}
	sort.Slice(page.Endpoints, func(i, j int) bool {
		a, b := page.Endpoints[i], page.Endpoints[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return methodOrder[strings.ToLower(a.Method)] < methodOrder[strings.ToLower(b.Method)]
	})
	return page, nil
}

func registerDocsRoutes(app fiber.Router, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	page, err := buildDocsPage(openAPISpec)
	if err != nil {
		return err
	}
	var rendered bytes.Buffer
	if err := docsTemplate.Execute(&rendered, page); err != nil {
		return fmt.Errorf("render docs page: %w", err)
	}
	html := rendered.Bytes()

	index := func(c *fiber.Ctx) error {
		setDocsHeaders(c, fiber.MIMETextHTMLCharsetUTF8, docsPageCSP)
		return c.Send(html)
	}
	app.Get("/docs", index)
	app.Get("/docs/", index)
	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		setDocsHeaders(c, "application/yaml; charset=utf-8", docsSpecCSP)
		return c.Send(openAPISpec)
	})
	return nil
}

func setDocsHeaders(c *fiber.Ctx, contentType, csp string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentSecurityPolicy, csp)
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set("X-Robots-Tag", "noindex")
}
