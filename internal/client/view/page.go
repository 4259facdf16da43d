package view

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// PageImage is an image shown under the note body. URL points at a live
// preview handle.
type PageImage struct {
	Name string
	URL  string
}

// PageFile is a non-image attachment listed on the page.
type PageFile struct {
	Name string
	Type string
	Size int64
}

type pageImage struct {
	Name string
	URL  template.URL
}

type pageData struct {
	Title        string
	RenderedHTML template.HTML
	Images       []pageImage
	Files        []PageFile
}

var pageTemplate = template.Must(template.New("note").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<article>{{.RenderedHTML}}</article>
{{- if .Images}}
<section class="images">
{{- range .Images}}
<figure><img src="{{.URL}}" alt="{{.Name}}"><figcaption>{{.Name}}</figcaption></figure>
{{- end}}
</section>
{{- end}}
{{- if .Files}}
<ul class="files">
{{- range .Files}}
<li>{{.Name}} ({{.Type}}, {{.Size}} bytes)</li>
{{- end}}
</ul>
{{- end}}
</body>
</html>
`))

// RenderMarkdown converts note content to HTML. Raw HTML in the content is
// omitted.
func RenderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Page renders a standalone HTML document for n. Image attachments appear
// only when images carries a URL for them; other attachments are listed.
func Page(n models.Note, images []PageImage) ([]byte, error) {
	body, err := RenderMarkdown(n.Content)
	if err != nil {
		return nil, err
	}

	data := pageData{
		Title:        n.Title,
		RenderedHTML: template.HTML(body),
	}
	// file:// URLs of local previews would be filtered as unsafe otherwise
	for _, img := range images {
		data.Images = append(data.Images, pageImage{Name: img.Name, URL: template.URL(img.URL)})
	}
	for _, a := range n.Attachments {
		if !a.IsImage() {
			data.Files = append(data.Files, PageFile{Name: a.FileName, Type: a.FileType, Size: a.FileSize})
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}
