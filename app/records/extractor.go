package records

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode parses raw dataset bytes into the typed profile tree. Fields
// outside the modeled subset are ignored, so partially malformed
// records degrade to empty nodes instead of failing the batch.
func Decode(raw []byte) ([]Profile, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var profiles []Profile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("records: decode dataset items: %w", err)
	}
	return profiles, nil
}

// ExtractMediaRefs walks every profile's post tree depth-first and
// collects media URLs (primary display URL plus the images list),
// deduplicated by URL while preserving first-seen order.
func ExtractMediaRefs(profiles []Profile) []MediaRef {
	seen := make(map[string]bool)
	var refs []MediaRef

	add := func(url string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		refs = append(refs, MediaRef{Index: len(refs) + 1, URL: url})
	}

	var walk func(post Post)
	walk = func(post Post) {
		add(post.DisplayURL)
		for _, img := range post.Images {
			add(img)
		}
		for _, child := range post.ChildPosts {
			walk(child)
		}
	}

	for _, profile := range profiles {
		for _, post := range profile.LatestPosts {
			walk(post)
		}
	}

	return refs
}

// CollectTexts gathers post captions and comment texts across all
// profiles, in document order, joined for prompt construction.
func CollectTexts(profiles []Profile) string {
	var texts []string

	var walk func(post Post)
	walk = func(post Post) {
		if post.Caption != "" {
			texts = append(texts, post.Caption)
		}
		for _, comment := range post.LatestComments {
			if comment.Text != "" {
				texts = append(texts, comment.Text)
			}
		}
		for _, child := range post.ChildPosts {
			walk(child)
		}
	}

	for _, profile := range profiles {
		for _, post := range profile.LatestPosts {
			walk(post)
		}
	}

	return strings.Join(texts, "\n\n")
}
