package capsule

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/geonotes98/geonotes/pkg/core"
)

const (
	// PayloadID is the id of the element holding the machine-readable payload.
	PayloadID = "geonotes-export"
	// PayloadFormat tags the payload schema inside the document.
	PayloadFormat = "geonotes98/v1"

	humanLayout   = "Jan 2, 2006, 3:04 PM MST"
	humanLayout24 = "Jan 2, 2006, 15:04 MST"

	defaultDeskBg = "#f8f4e3"
	defaultInk    = "#1f1b2c"
)

var (
	payloadPattern = regexp.MustCompile(`(?s)<pre id="` + PayloadID + `"[^>]*>(.*?)</pre>`)

	// Exactly the three metacharacters; quotes and braces of the payload stay readable.
	escaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	unescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
)

var documentTemplate = template.Must(template.New("capsule").Funcs(template.FuncMap{
	"esc": escaper.Replace,
}).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>GeoNotes 98 Export</title>
{{- if .Style}}
<style>body{background:{{esc .Style.Background}};color:{{esc .Style.Ink}}}</style>
{{- end}}
</head>
<body>
<main>
<h1>GeoNotes 98 — Time Capsule</h1>
<p>This file holds the notes, stickers and theme you exported. Scroll down to read them, or open Raw data to copy the JSON payload.</p>
<section id="notes">
{{- range .Notes}}
<article class="note">
<h2>{{esc .Title}}</h2>
<small>Last edited {{.Edited}}</small>
<pre>{{esc .Content}}</pre>
</article>
{{- end}}
</section>
<details>
<summary>Raw data</summary>
<pre id="` + PayloadID + `" data-format="` + PayloadFormat + `">{{esc .Payload}}</pre>
</details>
<footer>Generated {{.Generated}}</footer>
</main>
</body>
</html>
`))

type styleView struct {
	Background string
	Ink        string
}

type noteView struct {
	Title   string
	Edited  string
	Content string
}

type documentView struct {
	Style     *styleView
	Notes     []noteView
	Payload   string
	Generated string
}

// Codec converts bundles to time-capsule documents and back.
// The zero value is not usable; use NewCodec.
type Codec struct {
	location *time.Location
	clock24h bool
	theme    map[string]string
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithLocation sets the time zone of the human-readable timestamps. Default UTC.
func WithLocation(loc *time.Location) CodecOption {
	return func(c *Codec) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithClock24h renders human-readable times on a 24-hour clock.
func WithClock24h(enabled bool) CodecOption {
	return func(c *Codec) { c.clock24h = enabled }
}

// WithTheme styles the document from theme tokens. "--desk-bg" and "--ink"
// are used; missing tokens fall back to the Sunset Desk colors.
func WithTheme(tokens map[string]string) CodecOption {
	return func(c *Codec) { c.theme = tokens }
}

// NewCodec creates a Codec.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{location: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCodec = NewCodec()

// BundleToHTML encodes b with the default codec.
func BundleToHTML(b Bundle) (string, error) {
	return defaultCodec.Encode(b)
}

// ExtractBundle decodes a time-capsule document with the default codec.
func ExtractBundle(doc string) (Bundle, error) {
	return defaultCodec.Decode(doc)
}

func (c *Codec) humanTime(ms int64) string {
	layout := humanLayout
	if c.clock24h {
		layout = humanLayout24
	}
	return core.FromMillis(ms).In(c.location).Format(layout)
}

// Encode renders b as a document. The output depends only on b and the
// codec's options.
func (c *Codec) Encode(b Bundle) (string, error) {
	payload, err := MarshalPayload(b)
	if err != nil {
		return "", err
	}

	view := documentView{
		Payload:   payload,
		Generated: c.humanTime(b.CreatedAt),
		Notes:     make([]noteView, 0, len(b.Notes)),
	}
	if c.theme != nil {
		view.Style = &styleView{Background: defaultDeskBg, Ink: defaultInk}
		if v := c.theme["--desk-bg"]; v != "" {
			view.Style.Background = v
		}
		if v := c.theme["--ink"]; v != "" {
			view.Style.Ink = v
		}
	}
	for _, n := range b.Notes {
		title := n.Title
		if title == "" {
			title = "Untitled"
		}
		view.Notes = append(view.Notes, noteView{
			Title:   title,
			Edited:  c.humanTime(n.UpdatedAt),
			Content: n.Content,
		})
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Decode locates the payload of doc, parses and validates it.
// The bundle is returned as embedded, without defaults filled in.
func (c *Codec) Decode(doc string) (Bundle, error) {
	raw, err := ExtractPayload(doc)
	if err != nil {
		return Bundle{}, err
	}
	return UnmarshalPayload([]byte(raw))
}

// MarshalPayload returns the compact JSON form of b. Nil slices are written as [].
func MarshalPayload(b Bundle) (string, error) {
	if b.Notes == nil {
		b.Notes = []core.Note{}
	}
	if b.Stickers == nil {
		b.Stickers = []core.Sticker{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(b); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// ExtractPayload returns the JSON text embedded in doc.
func ExtractPayload(doc string) (string, error) {
	m := payloadPattern.FindStringSubmatch(doc)
	if m == nil {
		return "", &PayloadError{Kind: ErrPayloadNotFound, Reason: `no <pre id="` + PayloadID + `"> element`}
	}
	return unescaper.Replace(m[1]), nil
}

// UnmarshalPayload parses and validates a JSON payload.
func UnmarshalPayload(data []byte) (Bundle, error) {
	var generic any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return Bundle{}, &PayloadError{Kind: ErrPayloadMalformed, Err: err}
	}
	if decoder.More() {
		return Bundle{}, &PayloadError{Kind: ErrPayloadMalformed, Reason: "trailing data after payload"}
	}

	if err := ValidateBundle(generic).err(); err != nil {
		return Bundle{}, err
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Bundle{}, &PayloadError{Kind: ErrPayloadInvalid, Err: err}
	}
	stackByPosition(b.Stickers, generic.(map[string]any)["stickers"].([]any))
	return b, nil
}

// stackByPosition gives stickers written without a zIndex their array
// position (1-based) as stacking order, so later entries stay on top.
func stackByPosition(stickers []core.Sticker, raw []any) {
	for i, v := range raw {
		if _, present := v.(map[string]any)["zIndex"]; !present {
			stickers[i].ZIndex = int64(i + 1)
		}
	}
}

// SuggestedFilename names the export file after the bundle's UTC date.
func SuggestedFilename(b Bundle) string {
	return "geonotes98-" + core.FromMillis(b.CreatedAt).Format("2006-01-02") + ".html"
}
