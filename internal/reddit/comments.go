package reddit

import (
	"encoding/json"
	"sort"
	"strings"
)

// commentNode is one comment in the reply tree. Replies is either an
// empty string (leaf) or a nested listing envelope, so it stays raw
// until flattening inspects it
type commentNode struct {
	Body    string          `json:"body"`
	Score   int             `json:"score"`
	Replies json.RawMessage `json:"replies"`
}

type rankedComment struct {
	score int
	text  string
}

// flattenComments walks a comment subtree depth-first, emitting each
// surviving comment with a depth-proportional indent marker. Deleted
// and removed bodies are skipped along with their formatting, but their
// replies are not visited either, matching the source tree's pruning
func flattenComments(node commentNode, includeReplies bool, depth int) []rankedComment {
	var results []rankedComment

	if isTombstone(node.Body) {
		return results
	}

	text := node.Body
	if depth > 0 {
		text = strings.Repeat("→ ", depth) + node.Body
	}
	results = append(results, rankedComment{score: node.Score, text: text})

	if !includeReplies || len(node.Replies) == 0 {
		return results
	}

	var replies thing
	if err := json.Unmarshal(node.Replies, &replies); err != nil {
		// Leaf comments carry `"replies": ""`
		return results
	}
	var children listing
	if err := json.Unmarshal(replies.Data, &children); err != nil {
		return results
	}

	for _, child := range children.Children {
		if child.Kind != kindComment {
			continue
		}
		var reply commentNode
		if err := json.Unmarshal(child.Data, &reply); err != nil {
			continue
		}
		results = append(results, flattenComments(reply, includeReplies, depth+1)...)
	}

	return results
}

// rankComments orders flattened comments by score descending (stable,
// so equal scores keep encounter order) and keeps the top limit texts
func rankComments(all []rankedComment, limit int) []string {
	if len(all) == 0 {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].score > all[j].score
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	texts := make([]string, len(all))
	for i, c := range all {
		texts[i] = c.text
	}
	return texts
}
