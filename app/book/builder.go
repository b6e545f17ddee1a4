package book

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/profilezine/zinepress/app/llm"
	"github.com/profilezine/zinepress/app/records"
	"github.com/profilezine/zinepress/app/runstore"
)

// FallbackNarrative is used whenever the text service is unavailable
// or returns an error. The book must still build; degraded prose beats
// no artifact.
const FallbackNarrative = "A collection of moments, gathered from a life shared online."

// Builder renders the final book artifact from a run's records and
// media directory. It tolerates empty records and zero media files.
type Builder struct {
	store   *runstore.Store
	textGen llm.TextGenerator
}

func NewBuilder(store *runstore.Store, textGen llm.TextGenerator) *Builder {
	return &Builder{
		store:   store,
		textGen: textGen,
	}
}

// Run builds and persists book.html for the run.
func (b *Builder) Run(ctx context.Context, runID string) error {
	var profiles []records.Profile
	if raw, err := b.store.ReadRecords(runID); err != nil {
		slog.Warn("Building without records", "run", runID, "error", err)
	} else if profiles, err = records.Decode(raw); err != nil {
		slog.Warn("Building with undecodable records", "run", runID, "error", err)
	}

	narrative := b.narrative(ctx, runID, profiles)

	mediaFiles, err := b.store.MediaFiles(runID)
	if err != nil {
		slog.Warn("Building without media listing", "run", runID, "error", err)
	}

	page, err := render(pageData{
		Title:      bookTitle(profiles),
		Subtitle:   bookSubtitle(profiles),
		Narrative:  narrative,
		MediaFiles: mediaFiles,
		Captions:   postCaptions(profiles),
		BuiltAt:    time.Now().In(time.Local).Format("January 2, 2006"),
	})
	if err != nil {
		return fmt.Errorf("book: render: %w", err)
	}

	if err := b.store.SaveArtifact(runID, page); err != nil {
		return fmt.Errorf("book: save artifact: %w", err)
	}

	slog.Info("Book built", "run", runID, "media_files", len(mediaFiles), "profiles", len(profiles))
	return nil
}

func (b *Builder) narrative(ctx context.Context, runID string, profiles []records.Profile) string {
	texts := records.CollectTexts(profiles)
	if texts == "" {
		return FallbackNarrative
	}

	generated, err := b.textGen.Generate(ctx, texts)
	if err != nil {
		slog.Warn("Text generation failed, using fallback narrative", "run", runID, "error", err)
		return FallbackNarrative
	}
	return generated
}

func bookTitle(profiles []records.Profile) string {
	for _, profile := range profiles {
		if profile.FullName != "" {
			return profile.FullName
		}
		if profile.Username != "" {
			return "@" + profile.Username
		}
	}
	return "Untitled"
}

func bookSubtitle(profiles []records.Profile) string {
	for _, profile := range profiles {
		if profile.Username != "" {
			return fmt.Sprintf("@%s · %d followers", profile.Username, profile.FollowersCount)
		}
	}
	return ""
}

func postCaptions(profiles []records.Profile) []string {
	var captions []string
	for _, profile := range profiles {
		for _, post := range profile.LatestPosts {
			if post.Caption != "" {
				captions = append(captions, post.Caption)
			}
		}
	}
	return captions
}

type pageData struct {
	Title      string
	Subtitle   string
	Narrative  string
	MediaFiles []string
	Captions   []string
	BuiltAt    string
}

var pageTemplate = template.Must(template.New("book").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Georgia, serif; max-width: 48rem; margin: 0 auto; padding: 2rem; color: #222; }
  header { text-align: center; margin-bottom: 3rem; }
  h1 { font-size: 2.4rem; margin-bottom: 0.2rem; }
  .subtitle { color: #777; }
  .narrative { font-size: 1.1rem; line-height: 1.7; white-space: pre-wrap; margin-bottom: 3rem; }
  figure { margin: 0 0 2.5rem 0; }
  figure img { width: 100%; border-radius: 4px; }
  figcaption { color: #555; font-style: italic; margin-top: 0.5rem; }
  footer { text-align: center; color: #999; margin-top: 4rem; font-size: 0.9rem; }
</style>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  {{if .Subtitle}}<p class="subtitle">{{.Subtitle}}</p>{{end}}
</header>
<section class="narrative">{{.Narrative}}</section>
<section class="gallery">
{{range $i, $file := .MediaFiles}}  <figure>
    <img src="media/{{$file}}" alt="">
{{if lt $i (len $.Captions)}}    <figcaption>{{index $.Captions $i}}</figcaption>
{{end}}  </figure>
{{end}}</section>
<footer>Built {{.BuiltAt}}</footer>
</body>
</html>
`))

func render(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
