// Package transform rewrites Obsidian embed and wiki-link markers into
// standard Markdown for the destination layout.
package transform

import (
	"path"
	"regexp"
	"strings"

	"github.com/starford/kenaz-migrate/internal/classifier"
	"github.com/starford/kenaz-migrate/internal/models"
	"github.com/starford/kenaz-migrate/internal/refindex"
)

// DefaultAssetsLinkPath is the image prefix used when none is configured.
const DefaultAssetsLinkPath = "./assets"

// placeholderHref marks a link whose target could not be found.
const placeholderHref = "#"

var (
	imageRe    = regexp.MustCompile(`!\[\[([^\]]+)\]\]`)
	wikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
)

// Result is a rewritten body plus the outcome of every wiki-link in it.
type Result struct {
	Body   string
	Links  []models.Link
	Embeds []string // asset filenames referenced by image embeds, in order
}

// Transformer rewrites document bodies against a frozen index.
type Transformer struct {
	idx        *refindex.Index
	assetsPath string
}

// New returns a Transformer resolving links through idx and pointing images
// at assetsLinkPath.
func New(idx *refindex.Index, assetsLinkPath string) *Transformer {
	if assetsLinkPath == "" {
		assetsLinkPath = DefaultAssetsLinkPath
	}
	return &Transformer{
		idx:        idx,
		assetsPath: strings.TrimRight(assetsLinkPath, "/"),
	}
}

// Transform applies the image pass, then the link pass, then the callout
// pass to body. doc is the document the body belongs to.
func (t *Transformer) Transform(doc models.Document, body string) Result {
	body, embeds := t.rewriteImages(body)
	body, links := t.rewriteLinks(doc, body)
	body = passCallouts(body)
	return Result{Body: body, Links: links, Embeds: embeds}
}

// splitMarker splits "target|text" on the first pipe. A trailing backslash
// on target (escaped pipe inside tables) is dropped.
func splitMarker(inner string) (target, text string, hasText bool) {
	target, text, hasText = strings.Cut(inner, "|")
	target = strings.TrimSpace(strings.TrimSuffix(target, `\`))
	return target, strings.TrimSpace(text), hasText
}

func (t *Transformer) rewriteImages(body string) (string, []string) {
	var names []string
	out := imageRe.ReplaceAllStringFunc(body, func(m string) string {
		inner := imageRe.FindStringSubmatch(m)[1]
		target, alt, _ := splitMarker(inner)
		name := path.Base(strings.ReplaceAll(target, `\`, "/"))
		names = append(names, name)
		return "![" + alt + "](" + destination(t.assetsPath+"/"+name) + ")"
	})
	return out, names
}

func (t *Transformer) rewriteLinks(doc models.Document, body string) (string, []models.Link) {
	var links []models.Link
	from := classifier.Destination(doc)

	out := wikilinkRe.ReplaceAllStringFunc(body, func(m string) string {
		inner := wikilinkRe.FindStringSubmatch(m)[1]
		target, text, hasText := splitMarker(inner)
		if !hasText || text == "" {
			text = target
		}
		name, heading, _ := strings.Cut(target, "#")
		name = strings.TrimSpace(name)

		// [[#Heading]] points inside the same document.
		if name == "" && heading != "" {
			return "[" + text + "](#" + slug(heading) + ")"
		}

		found, status := t.idx.Lookup(name, doc.RelPath)
		link := models.Link{Source: doc.RelPath, Target: target, Status: status}
		if status == models.LinkMissing {
			link.Href = placeholderHref
		} else {
			link.TargetPath = found.RelPath
			link.Href = relative(path.Dir(from), classifier.Destination(found))
			if heading != "" {
				link.Href += "#" + slug(heading)
			}
		}
		links = append(links, link)
		return "[" + text + "](" + destination(link.Href) + ")"
	})
	return out, links
}

// passCallouts leaves "> [!note]" callouts untouched; the destination
// renderer understands the Obsidian syntax.
func passCallouts(body string) string {
	return body
}

// destination wraps a link destination in angle brackets when it contains
// spaces, which CommonMark does not allow in a bare destination.
func destination(href string) string {
	if strings.ContainsAny(href, " \t") {
		return "<" + href + ">"
	}
	return href
}

// relative returns the slash path from directory fromDir to file to,
// prefixed with "./" when it does not climb.
func relative(fromDir, to string) string {
	var fromParts []string
	if fromDir != "." && fromDir != "" {
		fromParts = strings.Split(fromDir, "/")
	}
	toParts := strings.Split(to, "/")

	n := 0
	for n < len(fromParts) && n < len(toParts)-1 && fromParts[n] == toParts[n] {
		n++
	}
	up := len(fromParts) - n
	if up == 0 {
		return "./" + strings.Join(toParts[n:], "/")
	}
	return strings.Repeat("../", up) + strings.Join(toParts[n:], "/")
}

// slug turns a heading into the anchor form used by the destination site.
func slug(heading string) string {
	fields := strings.Fields(strings.ToLower(heading))
	return strings.Join(fields, "-")
}
