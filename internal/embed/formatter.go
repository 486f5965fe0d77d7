package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/media"
)

// DetailSource fetches raw media detail. *viostream.Client satisfies it.
type DetailSource interface {
	IsConfigured(ctx context.Context) bool
	MediaDetail(ctx context.Context, mediaID, expand string) (json.RawMessage, error)
}

// FormatterSettings control how references render as players.
type FormatterSettings struct {
	Width      string `json:"width"`
	Height     string `json:"height"`
	Autoplay   bool   `json:"autoplay"`
	Muted      bool   `json:"muted"`
	Controls   bool   `json:"controls"`
	Responsive bool   `json:"responsive"`
}

// DefaultFormatterSettings returns a 100% x 400 responsive player with controls.
func DefaultFormatterSettings() FormatterSettings {
	return FormatterSettings{
		Width:      "100%",
		Height:     "400",
		Controls:   true,
		Responsive: true,
	}
}

// PlayerOptions maps the settings onto embed URL flags.
func (s FormatterSettings) PlayerOptions() PlayerOptions {
	return PlayerOptions{Autoplay: s.Autoplay, Muted: s.Muted, HideControls: !s.Controls}
}

// Summary lists the settings in human-readable lines.
func (s FormatterSettings) Summary() []string {
	lines := []string{fmt.Sprintf("Width: %s, Height: %s", s.Width, s.Height)}
	if s.Responsive {
		lines = append(lines, "Responsive: Yes")
	}
	var opts []string
	if s.Autoplay {
		opts = append(opts, "Autoplay")
	}
	if s.Muted {
		opts = append(opts, "Muted")
	}
	if s.Controls {
		opts = append(opts, "Controls")
	}
	if len(opts) > 0 {
		lines = append(lines, strings.Join(opts, ", "))
	}
	return lines
}

// Element is one renderable player.
type Element struct {
	Delta      int    `json:"delta"`
	VideoID    string `json:"video_id"`
	EmbedURL   string `json:"embed_url"`
	Width      string `json:"width"`
	Height     string `json:"height"`
	Autoplay   bool   `json:"autoplay"`
	Muted      bool   `json:"muted"`
	Controls   bool   `json:"controls"`
	Responsive bool   `json:"responsive"`
	// AspectRatio is the CSS aspect-ratio value, empty when the frame size is unknown.
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// Formatter renders stored references as players.
type Formatter struct {
	settings FormatterSettings
	details  DetailSource
	logger   *zap.Logger
}

// NewFormatter creates a formatter. details may be nil, in which case no aspect ratio is looked up.
func NewFormatter(settings FormatterSettings, details DetailSource, logger *zap.Logger) *Formatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Formatter{settings: settings, details: details, logger: logger}
}

// Settings returns the formatter settings.
func (f *Formatter) Settings() FormatterSettings { return f.settings }

// ViewElements builds one element per renderable reference. Empty, unresolvable
// and unbuildable references are skipped; Delta keeps the original position.
func (f *Formatter) ViewElements(ctx context.Context, refs []Reference) []Element {
	elements := make([]Element, 0, len(refs))
	opts := f.settings.PlayerOptions()
	for delta, ref := range refs {
		key, ok := ref.Key()
		if !ok {
			continue
		}
		embedURL := BuildURL(key, opts)
		if embedURL == "" {
			continue
		}
		elements = append(elements, Element{
			Delta:       delta,
			VideoID:     key,
			EmbedURL:    embedURL,
			Width:       f.settings.Width,
			Height:      f.settings.Height,
			Autoplay:    f.settings.Autoplay,
			Muted:       f.settings.Muted,
			Controls:    f.settings.Controls,
			Responsive:  f.settings.Responsive,
			AspectRatio: f.AspectRatio(ctx, key),
		})
	}
	return elements
}

// AspectRatio looks up the video's frame size and returns its CSS aspect-ratio value,
// or "" when the API is not configured or the size cannot be determined.
func (f *Formatter) AspectRatio(ctx context.Context, key string) string {
	if f.details == nil || !f.details.IsConfigured(ctx) {
		return ""
	}
	raw, err := f.details.MediaDetail(ctx, key, "")
	if err != nil || len(raw) == 0 {
		f.logger.Debug("aspect ratio lookup skipped", zap.String("key", key), zap.Error(err))
		return ""
	}
	ratio, _ := media.ResolveDimensions(raw).AspectRatio()
	return ratio
}

var playerTemplate = template.Must(template.New("player").Funcs(template.FuncMap{
	"aspectStyle": aspectStyle,
}).Parse(`{{range .}}<div class="viostream-video{{if .Responsive}} viostream-video--responsive{{end}}"{{if .Responsive}} style="{{aspectStyle .AspectRatio}}"{{end}}>` +
	`<iframe src="{{.EmbedURL}}"{{if not .Responsive}} width="{{.Width}}" height="{{.Height}}"{{end}} title="Viostream video {{.VideoID}}" frameborder="0" allow="autoplay; fullscreen; picture-in-picture" allowfullscreen></iframe>` +
	`</div>{{end}}`))

// aspectStyle builds the wrapper style. ratio only ever holds digits, spaces and "/".
func aspectStyle(ratio string) template.CSS {
	if ratio == "" {
		ratio = "16 / 9"
	}
	return template.CSS("aspect-ratio: " + ratio + "; width: 100%;")
}

// Render returns the HTML for the given elements.
func Render(elements []Element) (template.HTML, error) {
	var buf bytes.Buffer
	if err := playerTemplate.Execute(&buf, elements); err != nil {
		return "", fmt.Errorf("render players: %w", err)
	}
	return template.HTML(buf.String()), nil
}
