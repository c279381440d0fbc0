package models

import "sort"

// BuildReplyTree assembles flat reply records into a tree. Siblings are
// ordered newest first. Replies whose parent is absent are dropped together
// with their descendants. The input records are copied, not mutated.
func BuildReplyTree(flat []*Reply) []*Reply {
	nodes := make(map[int]*Reply, len(flat))
	for _, r := range flat {
		if r == nil {
			continue
		}
		c := *r
		c.Replies = nil
		nodes[c.ID] = &c
	}

	var roots []*Reply
	for _, n := range nodes {
		if n.ParentID == 0 {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodes[n.ParentID]; ok && parent != n {
			parent.Replies = append(parent.Replies, n)
		}
	}

	sortTree(roots)
	return roots
}

func sortTree(replies []*Reply) {
	sort.SliceStable(replies, func(i, j int) bool {
		if replies[i].CreatedAt.Equal(replies[j].CreatedAt) {
			return replies[i].ID > replies[j].ID
		}
		return replies[i].CreatedAt.After(replies[j].CreatedAt)
	})
	for _, r := range replies {
		sortTree(r.Replies)
	}
}

// CountReplies counts every reply in the tree.
func CountReplies(tree []*Reply) int {
	n := 0
	for _, r := range tree {
		n += 1 + CountReplies(r.Replies)
	}
	return n
}

// FindReply looks up a reply anywhere in the tree.
func FindReply(tree []*Reply, id int) *Reply {
	for _, r := range tree {
		if r.ID == id {
			return r
		}
		if found := FindReply(r.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// SubtreeIDs returns the id of root and of every reply below it.
func SubtreeIDs(root *Reply) []int {
	if root == nil {
		return nil
	}
	ids := []int{root.ID}
	for _, child := range root.Replies {
		ids = append(ids, SubtreeIDs(child)...)
	}
	return ids
}

func removeFromTree(tree []*Reply, id int) ([]*Reply, int) {
	for i, r := range tree {
		if r.ID == id {
			removed := 1 + CountReplies(r.Replies)
			out := append([]*Reply{}, tree[:i]...)
			return append(out, tree[i+1:]...), removed
		}
		children, removed := removeFromTree(r.Replies, id)
		if removed > 0 {
			r.Replies = children
			return tree, removed
		}
	}
	return tree, 0
}
