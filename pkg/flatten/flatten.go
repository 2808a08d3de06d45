// Package flatten turns a matchup record tree into parallel flat arrays.
//
// Every function in the package visits records through Walk, a pre-order,
// depth-first, left-to-right traversal. Position i in any array produced here
// therefore refers to the same record as position i in every other array
// produced over the same tree:
//
//	idx := flatten.Flatten(tree)          // idx.IDs, idx.ParentIDs
//	lat := flatten.Project(tree, "y")     // lat[i] belongs to idx.IDs[i]
//
// Identifiers are the pre-order positions themselves, 0..n-1. A top-level
// record has parent NoParent; any other record has the identifier of its
// immediate parent. The tree shape can be rebuilt from the two arrays alone.
package flatten

import (
	"github.com/ajitpratap0/doms/pkg/matchup"
)

// NoParent is the parent identifier of a top-level record.
const NoParent = -1

// VisitFunc is called once per record with its identifier, the identifier of
// its parent, and its depth (0 for primaries).
type VisitFunc func(id, parentID, depth int, rec *matchup.Record)

// Walk visits every record of tree in pre-order and returns the number of
// records visited.
func Walk(tree matchup.Tree, visit VisitFunc) int {
	return walk(tree, NoParent, 0, 0, visit)
}

// walk visits records with identifiers starting at next and returns the
// identifier to assign after the last record of this subtree.
func walk(records []*matchup.Record, parentID, depth, next int, visit VisitFunc) int {
	for _, rec := range records {
		id := next
		visit(id, parentID, depth, rec)
		next = walk(rec.Matches, id, depth+1, id+1, visit)
	}
	return next
}

// Index is the flattened relationship encoding of a tree.
type Index struct {
	// IDs holds the record identifiers in traversal order, always 0..n-1.
	IDs []int
	// ParentIDs holds the parent identifier of each record, or NoParent.
	ParentIDs []int
}

// Len returns the number of records in the index.
func (x Index) Len() int { return len(x.IDs) }

// Flatten assigns identifiers to every record of tree.
func Flatten(tree matchup.Tree) Index {
	n := tree.Size()
	x := Index{
		IDs:       make([]int, 0, n),
		ParentIDs: make([]int, 0, n),
	}
	Walk(tree, func(id, parentID, _ int, _ *matchup.Record) {
		x.IDs = append(x.IDs, id)
		x.ParentIDs = append(x.ParentIDs, parentID)
	})
	return x
}

// Children rebuilds the parent to children adjacency from the index. Roots
// are listed under NoParent. Children appear in traversal order.
func (x Index) Children() map[int][]int {
	adj := make(map[int][]int)
	for i, id := range x.IDs {
		adj[x.ParentIDs[i]] = append(adj[x.ParentIDs[i]], id)
	}
	return adj
}

// Shape rebuilds a field-less tree with the same structure as the tree the
// index was built from. Records that had no children get nil matches.
func (x Index) Shape() matchup.Tree {
	adj := x.Children()
	var build func(parent int) []*matchup.Record
	build = func(parent int) []*matchup.Record {
		ids, ok := adj[parent]
		if !ok {
			return nil
		}
		out := make([]*matchup.Record, 0, len(ids))
		for _, id := range ids {
			rec := matchup.NewRecord()
			rec.Matches = build(id)
			out = append(out, rec)
		}
		return out
	}

	tree := matchup.Tree(build(NoParent))
	if tree == nil {
		return matchup.Tree{}
	}
	return tree
}
