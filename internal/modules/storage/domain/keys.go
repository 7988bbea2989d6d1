package domain

import "strings"

type Kind string

const (
	KindProgress  Kind = "progress"
	KindPosition  Kind = "position"
	KindSessions  Kind = "sessions"
	KindBookmarks Kind = "bookmarks"
)

// Kinds lists the key classes stored for every document.
var Kinds = []Kind{KindProgress, KindPosition, KindSessions, KindBookmarks}

// Keys builds and parses namespaced keys of the form {prefix}-{kind}-{documentId}.
type Keys struct {
	Prefix string
}

func (k Keys) For(kind Kind, documentID string) string {
	return k.Prefix + "-" + string(kind) + "-" + documentID
}

// Document returns every key held for documentID.
func (k Keys) Document(documentID string) []string {
	out := make([]string, 0, len(Kinds))
	for _, kind := range Kinds {
		out = append(out, k.For(kind, documentID))
	}
	return out
}

// Parse splits a namespaced key. Keys under the prefix that do not name a
// known kind and a document are reported as not ok.
func (k Keys) Parse(key string) (Kind, string, bool) {
	rest, ok := strings.CutPrefix(key, k.Prefix+"-")
	if !ok {
		return "", "", false
	}
	for _, kind := range Kinds {
		if doc, ok := strings.CutPrefix(rest, string(kind)+"-"); ok && doc != "" {
			return kind, doc, true
		}
	}
	return "", "", false
}
