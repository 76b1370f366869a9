package canon

import "github.com/benjamn/wryware/internal/refid"

// Component is a strongly connected component (SCC) of the input graph:
// a maximal set of input nodes that reach each other through deconstructed
// children. Single nodes with no self-cycle form singleton components.
type Component struct {
	// Members is a snapshot of the component in discovery order, taken once
	// when the component closes - set iteration elsewhere in Canon would not
	// otherwise permit stopping early once every member has been visited.
	Members []any
}

// buildResult is the output of one [buildComponents] pass: everything
// Canon needs to process an input graph component by component, in
// topological (leaves-first) order.
type buildResult struct {
	// Order lists every mapped (non-opaque) input node in the order it was
	// first reached.
	Order []refid.ID
	// ValueOf recovers the original value for an id.
	ValueOf map[refid.ID]any
	// Children is each id's cached deconstruct() output.
	Children map[refid.ID][]any
	// CompOf maps an id to the component it belongs to.
	CompOf map[refid.ID]*Component
	// Components lists every component in leaves-first topological order.
	Components []*Component
}

// expandFunc decides whether v is a mappable (handler-covered, not yet
// canonical) input node. ok=false means v terminates recursion as an opaque
// or primitive leaf; ok=true supplies v's deconstructed children.
type expandFunc func(v any) (children []any, ok bool)

// buildComponents runs an iterative Tarjan SCC pass over the graph rooted
// at root, using expand to both test mappability and fetch children. The
// explicit stack (rather than Go call recursion) keeps arbitrarily deep
// input graphs from overflowing the goroutine stack.
func buildComponents(root any, expand expandFunc) *buildResult {
	res := &buildResult{
		ValueOf:  make(map[refid.ID]any),
		Children: make(map[refid.ID][]any),
		CompOf:   make(map[refid.ID]*Component),
	}

	rootID, ok := refid.Of(root)
	if !ok {
		return res
	}
	rootChildren, expandable := expand(root)
	if !expandable {
		return res
	}

	orderOf := map[refid.ID]int{rootID: 0}
	lowlink := map[refid.ID]int{rootID: 0}
	onStack := map[refid.ID]bool{rootID: true}
	nextOrder := 1
	rootStack := []refid.ID{rootID}
	compStack := []refid.ID{rootID}

	res.ValueOf[rootID] = root
	res.Children[rootID] = rootChildren
	res.Order = append(res.Order, rootID)

	type frame struct {
		id       refid.ID
		children []any
		idx      int
	}
	stack := []*frame{{id: rootID, children: rootChildren}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.idx < len(top.children) {
			child := top.children[top.idx]
			top.idx++

			cid, ok := refid.Of(child)
			if !ok {
				continue // primitive leaf
			}
			if ord, seen := orderOf[cid]; seen {
				if onStack[cid] && ord < lowlink[top.id] {
					lowlink[top.id] = ord
				}
				continue
			}

			cChildren, expandable := expand(child)
			if !expandable {
				continue // opaque or already-canonical leaf, not mapped
			}

			orderOf[cid] = nextOrder
			lowlink[cid] = nextOrder
			nextOrder++
			onStack[cid] = true
			rootStack = append(rootStack, cid)
			compStack = append(compStack, cid)
			res.ValueOf[cid] = child
			res.Children[cid] = cChildren
			res.Order = append(res.Order, cid)

			stack = append(stack, &frame{id: cid, children: cChildren})
			continue
		}

		// All of top's children have been visited; unwind.
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			if lowlink[top.id] < lowlink[parent.id] {
				lowlink[parent.id] = lowlink[top.id]
			}
		}

		if lowlink[top.id] == orderOf[top.id] {
			for rootStack[len(rootStack)-1] != top.id {
				rootStack = rootStack[:len(rootStack)-1]
			}
			rootStack = rootStack[:len(rootStack)-1]

			splitAt := -1
			for i := len(compStack) - 1; i >= 0; i-- {
				if compStack[i] == top.id {
					splitAt = i
					break
				}
			}
			members := append([]refid.ID(nil), compStack[splitAt:]...)
			compStack = compStack[:splitAt]

			comp := &Component{}
			for _, m := range members {
				onStack[m] = false
				comp.Members = append(comp.Members, res.ValueOf[m])
				res.CompOf[m] = comp
			}
			res.Components = append(res.Components, comp)
		}
	}

	return res
}
