// Package frontmatter synthesizes destination metadata headers.
//
// Headers are merged in two tiers. Content fields (title, dates, flags and
// category defaults such as difficulty) keep any value the source document
// already has. Destination-format fields depend only on where the document
// lands and are always recomputed.
package frontmatter

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/kenaz-migrate/internal/classifier"
	"github.com/starford/kenaz-migrate/internal/models"
)

// Header keys.
const (
	KeyTitle          = "title"
	KeyDescription    = "description"
	KeyPubDate        = "pubDate"
	KeyLastModDate    = "lastModDate"
	KeyTOC            = "toc"
	KeyShare          = "share"
	KeyGiscus         = "giscus"
	KeyOGImage        = "ogImage"
	KeyDraft          = "draft"
	KeyCategory       = "category"
	KeyProjectType    = "projectType"
	KeySubtitle       = "subtitle"
	KeyMinutesRead    = "minutesRead"
	KeyRadio          = "radio"
	KeyVideo          = "video"
	KeyPlatform       = "platform"
	KeyNoteType       = "noteType"
	KeyTags           = "tags"
	KeyDifficulty     = "difficulty"
	KeyCollectionType = "collectionType"
	KeySource         = "source"
)

// Project types for Primary documents.
const (
	ProjectLearning = "learning"
	ProjectBuild    = "project"
)

// NoteTypeQuick marks QuickNote documents.
const NoteTypeQuick = "quick-note"

// DateLayout formats pubDate defaults.
const DateLayout = "2006-01-02"

// KeyOrder is the serialization order of synthesized keys. Keys not listed
// are written after these, sorted.
var KeyOrder = []string{
	KeyTitle, KeyDescription, KeyPubDate, KeyLastModDate,
	KeyCategory, KeyProjectType, KeyNoteType, KeyCollectionType, KeySource,
	KeySubtitle, KeyTags, KeyDifficulty, KeyMinutesRead,
	KeyTOC, KeyShare, KeyGiscus, KeyOGImage, KeyDraft,
	KeyRadio, KeyVideo, KeyPlatform,
}

// Defaults holds the configurable default labels.
type Defaults struct {
	DescriptionSuffix  string `yaml:"description_suffix"`
	QuickNoteCategory  string `yaml:"quick_note_category"`
	Difficulty         string `yaml:"difficulty"`
	CollectionCategory string `yaml:"collection_category"`
	CollectionType     string `yaml:"collection_type"`
	CollectionSource   string `yaml:"collection_source"`
}

// NewDefaults returns the labels used by the destination theme.
func NewDefaults() Defaults {
	return Defaults{
		DescriptionSuffix:  "相关内容",
		QuickNoteCategory:  "问题解决",
		Difficulty:         "beginner",
		CollectionCategory: "收集",
		CollectionType:     "articles",
		CollectionSource:   "网络收集",
	}
}

type field struct {
	key   string
	value any
}

// Synthesizer builds destination headers.
type Synthesizer struct {
	defaults Defaults
	now      func() time.Time
}

// NewSynthesizer returns a Synthesizer. now supplies the run date used for
// missing pubDate values; nil means time.Now.
func NewSynthesizer(defaults Defaults, now func() time.Time) *Synthesizer {
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{defaults: defaults, now: now}
}

// Synthesize merges existing with the defaults for cat. existing is not
// modified; every field of existing survives unless it is a
// destination-format field of cat.
func (s *Synthesizer) Synthesize(existing models.Header, cat models.Category, relPath string) models.Header {
	h := existing.Clone()

	title := stringOr(h, KeyTitle, basename(relPath))
	keepExisting(h,
		field{KeyTitle, title},
		field{KeyDescription, title + s.defaults.DescriptionSuffix},
		field{KeyPubDate, s.now().Format(DateLayout)},
		field{KeyLastModDate, ""},
		field{KeyTOC, true},
		field{KeyShare, true},
		field{KeyGiscus, true},
		field{KeyOGImage, true},
		field{KeyDraft, false},
	)

	switch cat {
	case models.QuickNote:
		keepExisting(h,
			field{KeyCategory, s.defaults.QuickNoteCategory},
			field{KeyTags, []string{}},
			field{KeyDifficulty, s.defaults.Difficulty},
		)
		override(h,
			field{KeyNoteType, NoteTypeQuick},
			field{KeyTOC, false},
			field{KeyGiscus, false},
			field{KeyOGImage, false},
		)
	case models.Collection:
		keepExisting(h,
			field{KeyCategory, s.defaults.CollectionCategory},
			field{KeyCollectionType, s.defaults.CollectionType},
			field{KeySource, s.defaults.CollectionSource},
		)
		override(h,
			field{KeyTOC, false},
			field{KeyShare, false},
			field{KeyGiscus, false},
			field{KeyOGImage, false},
		)
	default:
		keepExisting(h,
			field{KeySubtitle, ""},
			field{KeyMinutesRead, 0},
			field{KeyRadio, false},
			field{KeyVideo, false},
			field{KeyPlatform, ""},
		)
		override(h,
			field{KeyCategory, CategoryPath(relPath)},
			field{KeyProjectType, ProjectType(relPath)},
		)
	}
	return h
}

// CategoryPath returns relPath without a leading "learn/" or "build/"
// segment and without its extension, slash-separated.
func CategoryPath(relPath string) string {
	p := classifier.StripPrimaryRoot(relPath)
	return strings.TrimSuffix(p, path.Ext(p))
}

// ProjectType returns ProjectBuild when relPath has a "build" segment.
func ProjectType(relPath string) string {
	if classifier.IsBuild(relPath) {
		return ProjectBuild
	}
	return ProjectLearning
}

func keepExisting(h models.Header, fields ...field) {
	for _, f := range fields {
		if !h.Has(f.key) {
			h[f.key] = f.value
		}
	}
}

func override(h models.Header, fields ...field) {
	for _, f := range fields {
		h[f.key] = f.value
	}
}

func stringOr(h models.Header, key, fallback string) string {
	if !h.Has(key) {
		return fallback
	}
	if s, ok := h[key].(string); ok {
		return s
	}
	return fmt.Sprint(h[key])
}

func basename(relPath string) string {
	b := path.Base(relPath)
	return strings.TrimSuffix(b, path.Ext(b))
}
