package x12

import (
	"fmt"
	"strconv"
)

// HLNode is one hierarchical level of a parsed transaction.
type HLNode struct {
	ID          string `json:"id"`
	ParentID    string `json:"parentId,omitempty"`
	LevelCode   string `json:"levelCode"`
	HasChildren bool   `json:"hasChildren"`
	Position    int    `json:"position"`
	// Linked is false when the node was accepted despite breaking the
	// hierarchy rules; its loop is kept but not attached to the tree.
	Linked   bool `json:"linked"`
	children int
}

// hierarchy is the HL state machine. Each level is linked to its declared
// parent and checked against the parent codes the transaction allows.
type hierarchy struct {
	schema *TransactionSchema
	nodes  []HLNode
	byID   map[string]int
	lastID int
}

func newHierarchy(schema *TransactionSchema) *hierarchy {
	return &hierarchy{schema: schema, byID: make(map[string]int)}
}

// visit applies one HL segment found at a 1-based position and returns the
// findings it produced.
func (h *hierarchy) visit(seg Segment, pos int) []Finding {
	node := HLNode{
		ID:          seg.Get("ID"),
		ParentID:    seg.Get("ParentID"),
		LevelCode:   seg.Get("LevelCode"),
		HasChildren: seg.Get("ChildCode") == "1",
		Position:    pos,
		Linked:      true,
	}
	if node.ParentID == "0" {
		node.ParentID = ""
	}

	var findings []Finding
	fail := func(reason string) {
		node.Linked = false
		err := &InvalidHierarchyError{ID: node.ID, ParentID: node.ParentID, LevelCode: node.LevelCode, Reason: reason}
		findings = append(findings, errorFinding(pos, seg.ID, err))
	}

	duplicate := h.hasID(node.ID)
	id, err := strconv.Atoi(node.ID)
	switch {
	case err != nil || id <= 0:
		fail("level id is not a positive number")
	case duplicate:
		fail("level id is already declared")
	case id <= h.lastID:
		fail(fmt.Sprintf("level id does not increase (previous %d)", h.lastID))
	}
	if err == nil && id > h.lastID {
		h.lastID = id
	}

	if _, known := h.schema.Hierarchy[node.LevelCode]; !known {
		fail(fmt.Sprintf("level code %q is not used by transaction %s", node.LevelCode, h.schema.Type))
	} else {
		parentCode, parentKnown := "", true
		if node.ParentID != "" {
			if idx, ok := h.byID[node.ParentID]; ok {
				parent := &h.nodes[idx-1]
				parent.children++
				parentCode = parent.LevelCode
			} else {
				parentKnown = false
				fail(fmt.Sprintf("parent %s is not declared before this level", node.ParentID))
			}
		}
		if parentKnown && !h.schema.AllowsParent(node.LevelCode, parentCode) {
			fail(fmt.Sprintf("%s level may not follow %s level", levelName(node.LevelCode), levelName(parentCode)))
		}
	}

	h.nodes = append(h.nodes, node)
	if node.ID != "" && !duplicate {
		h.byID[node.ID] = len(h.nodes)
	}
	return findings
}

func (h *hierarchy) hasID(id string) bool {
	_, ok := h.byID[id]
	return ok
}

// finish checks the child indicators once every HL has been seen.
func (h *hierarchy) finish() []Finding {
	var findings []Finding
	for _, n := range h.nodes {
		switch {
		case n.HasChildren && n.children == 0:
			findings = append(findings, warningFinding(n.Position, "HL",
				fmt.Sprintf("HL %s declares child levels but none follow", n.ID), nil))
		case !n.HasChildren && n.children > 0:
			findings = append(findings, warningFinding(n.Position, "HL",
				fmt.Sprintf("HL %s declares no child levels but %d follow", n.ID, n.children), nil))
		}
	}
	return findings
}

// Nodes returns the levels in document order.
func (h *hierarchy) Nodes() []HLNode {
	return h.nodes
}

func levelName(code string) string {
	if name, ok := hierarchyLevelNames[code]; ok {
		return name
	}
	return fmt.Sprintf("%q", code)
}
