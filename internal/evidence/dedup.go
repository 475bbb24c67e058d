package evidence

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var noiseTokens = map[string]bool{
	"rerun": true, "retry": true, "follow": true, "latest": true,
	"after": true, "post": true, "progress": true, "refresh": true,
	"next": true, "attempt": true, "continuation": true, "final": true,
	"step": true, "up": true, "current": true, "additional": true,
	"further": true,
}

var numericPrefixRe = regexp.MustCompile(`^[0-9]+[-_.]?`)
var wordSplitRe = regexp.MustCompile(`[-_.\s]+`)

// Signature derives the dedup grouping key from a file stem: strip a
// leading numeric ordering prefix, then drop a trailing run of noise
// tokens drawn from the fixed set spec.md §4.9 names.
func Signature(stem string) string {
	stripped := numericPrefixRe.ReplaceAllString(stem, "")
	tokens := wordSplitRe.Split(stripped, -1)

	end := len(tokens)
	for end > 0 && noiseTokens[strings.ToLower(tokens[end-1])] {
		end--
	}
	if end == 0 {
		end = len(tokens)
	}
	return strings.ToLower(strings.Join(tokens[:end], "-"))
}

// hasNumericPrefix reports whether stem begins with a numeric ordering
// prefix (e.g. "01-screenshot.png").
func hasNumericPrefix(stem string) bool {
	return numericPrefixRe.MatchString(stem)
}

// ArtifactFile is one file in an evidence directory, with its
// modification time used for newest-first retention.
type ArtifactFile struct {
	Path    string
	Stem    string
	ModTime int64 // unix nanoseconds, read once by the caller
}

// DedupGroup is one signature-keyed group of files.
type DedupGroup struct {
	Signature          string
	Files              []ArtifactFile
	HasNoise           bool
	AllNumericPrefixed bool
}

// GroupBySignature partitions files into dedup groups.
func GroupBySignature(files []ArtifactFile) []DedupGroup {
	index := map[string]int{}
	var groups []DedupGroup

	for _, f := range files {
		sig := Signature(f.Stem)
		if i, ok := index[sig]; ok {
			groups[i].Files = append(groups[i].Files, f)
			continue
		}
		index[sig] = len(groups)
		groups = append(groups, DedupGroup{Signature: sig, Files: []ArtifactFile{f}})
	}

	for i := range groups {
		allNumeric := true
		hasNoise := false
		for _, f := range groups[i].Files {
			if !hasNumericPrefix(f.Stem) {
				allNumeric = false
			}
			if stemHasNoiseToken(f.Stem) {
				hasNoise = true
			}
		}
		groups[i].AllNumericPrefixed = allNumeric
		groups[i].HasNoise = hasNoise
	}

	return groups
}

func stemHasNoiseToken(stem string) bool {
	stripped := numericPrefixRe.ReplaceAllString(stem, "")
	for _, tok := range wordSplitRe.Split(stripped, -1) {
		if noiseTokens[strings.ToLower(tok)] {
			return true
		}
	}
	return false
}

// Prune applies spec.md §4.9's dedup rule: a group is deduplicated only
// if it has more than keepMaxPerBlocker files AND (has noise tokens OR
// is entirely numeric-prefixed); keep the newest keepMaxPerBlocker
// files, return the rest as removal candidates.
func (g DedupGroup) Prune(keepMaxPerBlocker int) (kept, removed []ArtifactFile) {
	if len(g.Files) <= keepMaxPerBlocker {
		return g.Files, nil
	}
	if !g.HasNoise && !g.AllNumericPrefixed {
		return g.Files, nil
	}

	sorted := make([]ArtifactFile, len(g.Files))
	copy(sorted, g.Files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ModTime > sorted[j].ModTime })

	return sorted[:keepMaxPerBlocker], sorted[keepMaxPerBlocker:]
}

// ListArtifacts reads every regular file directly inside dir and returns
// its ArtifactFile record.
func ListArtifacts(dir string) ([]ArtifactFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []ArtifactFile
	for _, e := range entries {
		if e.IsDir() || strings.EqualFold(e.Name(), "README.md") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		files = append(files, ArtifactFile{
			Path:    filepath.Join(dir, e.Name()),
			Stem:    stem,
			ModTime: info.ModTime().UnixNano(),
		})
	}
	return files, nil
}
