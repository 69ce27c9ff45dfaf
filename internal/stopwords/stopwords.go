// Package stopwords provides the stopword corpora referenced by name from
// the selection configuration.
package stopwords

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

//go:embed lists/*.txt
var lists embed.FS

// corpus id -> file; short codes are accepted as aliases.
var corpora = map[string]string{
	"english": "lists/english.txt",
	"en":      "lists/english.txt",
	"spanish": "lists/spanish.txt",
	"es":      "lists/spanish.txt",
}

var (
	mu     sync.Mutex
	loaded = map[string][]string{}
)

// Known reports whether id names a bundled corpus.
func Known(id string) bool {
	_, ok := corpora[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// Names returns the canonical corpus ids.
func Names() []string {
	var names []string
	for id := range corpora {
		if len(id) > 2 {
			names = append(names, id)
		}
	}
	sort.Strings(names)
	return names
}

// Words returns the words of a corpus in file order.
func Words(id string) ([]string, error) {
	file, ok := corpora[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("unknown stopword corpus %q (known: %s)", id, strings.Join(Names(), ", "))
	}

	mu.Lock()
	defer mu.Unlock()
	if words, ok := loaded[file]; ok {
		return words, nil
	}

	data, err := lists.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", id, err)
	}
	var words []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, norm.NFC.String(strings.ToLower(line)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan corpus %s: %w", id, err)
	}
	loaded[file] = words
	return words, nil
}

// Set builds a lookup set from a corpus plus extra words.
func Set(id string, extra ...string) (map[string]struct{}, error) {
	words, err := Words(id)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(words)+len(extra))
	for _, w := range words {
		set[w] = struct{}{}
	}
	for _, w := range extra {
		w = norm.NFC.String(strings.ToLower(strings.TrimSpace(w)))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set, nil
}
