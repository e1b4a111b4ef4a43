package reactions

// SeenChecker answers whether a reaction on an item has already been notified.
type SeenChecker interface {
	IsNew(itemID string, reactionID int64) bool
}

// Diff returns the fetched reactions that should be notified: not left by the
// item's author and not yet recorded for the item. Input order is kept.
//
// Self-reactions are filtered here only. Callers still have to mark every
// fetched id as seen, see IDs.
func Diff(item Item, fetched []Reaction, seen SeenChecker) []NewReaction {
	var out []NewReaction
	key := item.Key()
	for _, r := range fetched {
		if r.AuthorLogin == item.AuthorLogin {
			continue
		}
		if seen.IsNew(key, r.ID) {
			out = append(out, NewReaction{Reaction: r, Item: item})
		}
	}
	return out
}

// IDs returns the ids of all reactions, self-reactions included.
func IDs(fetched []Reaction) []int64 {
	ids := make([]int64, 0, len(fetched))
	for _, r := range fetched {
		ids = append(ids, r.ID)
	}
	return ids
}
