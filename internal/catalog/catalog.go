// Package catalog defines the static model catalog and the canonical
// cache-directory naming rules for the local asset store.
package catalog

import "strings"

// Capability families. Distil variants detect the source language but
// always emit English text; that surfaces through the decoder's reported
// language, not through engine logic.
const (
	FamilyWhisper = "whisper"
	FamilyDistil  = "distil-whisper"
)

// Descriptor describes one known model. Immutable catalog data.
type Descriptor struct {
	// ID is the stable short identifier users select.
	ID string
	// Ref is the backend reference: a built-in alias or an explicit
	// org/repo hub reference.
	Ref string
	// SizeMB is the expected installed size estimate.
	SizeMB int64
	// Family is the capability tag.
	Family string
	// Description is a short human-readable summary.
	Description string
}

// models holds the catalog in listing order.
var models = []Descriptor{
	{ID: "tiny", Ref: "tiny", SizeMB: 75, Family: FamilyWhisper, Description: "Fastest, multilingual, lower quality"},
	{ID: "base", Ref: "base", SizeMB: 145, Family: FamilyWhisper, Description: "Multilingual, good balance"},
	{ID: "small", Ref: "small", SizeMB: 488, Family: FamilyWhisper, Description: "Multilingual, better quality"},
	{ID: "medium", Ref: "medium", SizeMB: 1530, Family: FamilyWhisper, Description: "Multilingual, high quality"},
	{ID: "large-v3", Ref: "large-v3", SizeMB: 3094, Family: FamilyWhisper, Description: "Multilingual, best quality"},
	{ID: "turbo", Ref: "turbo", SizeMB: 1620, Family: FamilyWhisper, Description: "Multilingual, fast + good quality"},
	{ID: "distil-small.en", Ref: "Systran/faster-distil-whisper-small.en", SizeMB: 166, Family: FamilyDistil, Description: "6x faster, English input/output only"},
	{ID: "distil-medium.en", Ref: "Systran/faster-distil-whisper-medium.en", SizeMB: 394, Family: FamilyDistil, Description: "Fast, English input/output only"},
	{ID: "distil-large-v2", Ref: "Systran/faster-distil-whisper-large-v2", SizeMB: 756, Family: FamilyDistil, Description: "6x faster, multilingual to English output"},
	{ID: "distil-large-v3", Ref: "Systran/faster-distil-whisper-large-v3", SizeMB: 756, Family: FamilyDistil, Description: "6x faster, multilingual to English output"},
}

var byID = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(models))
	for _, d := range models {
		m[d.ID] = d
	}
	return m
}()

// irregularDirNames maps built-in aliases whose historical cache directory
// names do not follow the generated template. Checked before the general
// rules.
var irregularDirNames = map[string]string{
	"turbo":    "models--Systran--faster-whisper-large-v3-turbo",
	"large-v3": "models--Systran--faster-whisper-large-v3",
}

// hubRepoAliases maps built-in aliases whose hub repository suffix differs
// from the alias itself.
var hubRepoAliases = map[string]string{
	"turbo": "large-v3-turbo",
}

// Lookup returns the descriptor for id.
func Lookup(id string) (Descriptor, bool) {
	d, ok := byID[id]
	return d, ok
}

// All returns the catalog in listing order. The slice is a copy.
func All() []Descriptor {
	out := make([]Descriptor, len(models))
	copy(out, models)
	return out
}

// CacheDirName resolves the canonical cache directory name for id.
// Identifiers outside the catalog that carry an explicit org/repo
// reference are still resolvable; plain unknown identifiers are not.
func CacheDirName(id string) (string, bool) {
	if d, ok := byID[id]; ok {
		if strings.Contains(d.Ref, "/") {
			return "models--" + strings.ReplaceAll(d.Ref, "/", "--"), true
		}
		if dir, ok := irregularDirNames[d.Ref]; ok {
			return dir, true
		}
		return "models--Systran--faster-whisper-" + d.Ref, true
	}
	if strings.Contains(id, "/") {
		return "models--" + strings.ReplaceAll(id, "/", "--"), true
	}
	return "", false
}

// HubRepo resolves the remote repository for id. Built-in aliases map to
// their converted hub repositories; explicit references pass through.
func HubRepo(id string) (string, bool) {
	if d, ok := byID[id]; ok {
		if strings.Contains(d.Ref, "/") {
			return d.Ref, true
		}
		alias := d.Ref
		if mapped, ok := hubRepoAliases[alias]; ok {
			alias = mapped
		}
		return "Systran/faster-whisper-" + alias, true
	}
	if strings.Contains(id, "/") {
		return id, true
	}
	return "", false
}

// ExpectedBytes converts the catalog size estimate to bytes.
func (d Descriptor) ExpectedBytes() int64 {
	return d.SizeMB * 1024 * 1024
}
