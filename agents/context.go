package agents

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// maxRelevantFunctions caps the fallback list handed to later prompts.
const maxRelevantFunctions = 50

// ContextRetriever gathers background for one objective: model-provided
// context plus the repository functions whose names match the objective.
type ContextRetriever struct{ stage }

func NewContextRetriever(rt *Runtime) *ContextRetriever {
	return &ContextRetriever{stage{name: ContextRetrievalAgent, rt: rt}}
}

// Run returns the retrieved context and the relevant functions, both also
// stored in memory.
func (c *ContextRetriever) Run(ctx context.Context, objective string, repoMap map[string][]string) (retrieved, relevant []string) {
	relevant = RelevantFunctions(objective, repoMap)
	c.remember("relevant_functions", relevant)

	raw := c.generate(ctx, contextPrompt(objective, relevant), contextOptions)
	if raw == "" {
		return nil, relevant
	}
	obj, ok := c.parseObject(ctx, raw)
	if !ok {
		return nil, relevant
	}
	retrieved = stringList(obj, "context")
	c.remember("context_"+objective, retrieved)
	c.rt.log(c.name).Info("context retrieved",
		zap.String("objective", objective),
		zap.Int("items", len(retrieved)),
		zap.Int("relevant_functions", len(relevant)))
	return retrieved, relevant
}

// RelevantFunctions lists "file:function" entries whose file or function
// name shares a word with objective. With no match every function is
// returned, capped at maxRelevantFunctions.
func RelevantFunctions(objective string, repoMap map[string][]string) []string {
	words := keywords(objective)
	files := make([]string, 0, len(repoMap))
	for f := range repoMap {
		files = append(files, f)
	}
	sort.Strings(files)

	var matched, all []string
	for _, file := range files {
		base := strings.ToLower(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
		for _, fn := range repoMap[file] {
			entry := file + ":" + fn
			all = append(all, entry)
			name := strings.ToLower(fn)
			for _, w := range words {
				if strings.Contains(name, w) || strings.Contains(base, w) || (len(name) >= 3 && strings.Contains(w, name)) {
					matched = append(matched, entry)
					break
				}
			}
		}
	}
	if len(matched) > 0 {
		return matched
	}
	if len(all) > maxRelevantFunctions {
		all = all[:maxRelevantFunctions]
	}
	return all
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "add": true, "function": true, "with": true,
	"into": true, "from": true, "that": true, "this": true, "update": true, "file": true,
	"complete": true, "create": true, "implement": true,
}

// keywords splits text into lower-case words of three or more letters,
// also splitting snake_case, paths and dotted names.
func keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		if len(f) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
