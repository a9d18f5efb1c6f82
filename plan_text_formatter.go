package factextract

import (
	"fmt"
	"strings"
)

// formatAsText formats the plan as an ASCII tree.
func formatAsText(plan *PlanNode) string {
	var sb strings.Builder
	sb.WriteString("Extraction Plan (estimated costs)\n")
	formatNodeAsText(plan, "", true, &sb)
	return sb.String()
}

// formatNodeAsText recursively formats a node and its children as text.
func formatNodeAsText(node *PlanNode, prefix string, isLast bool, sb *strings.Builder) {
	connector := "├─ "
	if isLast {
		connector = "└─ "
	}
	if prefix == "" {
		connector = ""
	}

	fmt.Fprintf(sb, "%s%s%s\n", prefix, connector, formatNodeInfo(node))

	childPrefix := prefix
	if prefix == "" {
		// First level children get "  " as prefix to properly indent them
		childPrefix = "  "
	} else if isLast {
		childPrefix += "   "
	} else {
		childPrefix += "│  "
	}

	for i, child := range node.Children {
		formatNodeAsText(child, childPrefix, i == len(node.Children)-1, sb)
	}
}

// formatNodeInfo formats information for a single node.
func formatNodeInfo(node *PlanNode) string {
	parts := []string{string(node.Type)}

	if node.Unit != "" {
		parts = append(parts, fmt.Sprintf(`"%s"`, node.Unit))
	}

	var details []string

	if node.Model != "" {
		details = append(details, fmt.Sprintf("model=%s", node.Model))
	}

	details = append(details, fmt.Sprintf("cost=%.1f", node.EstCost))

	if node.Length > 0 {
		details = append(details, fmt.Sprintf("chars=%d", node.Length))
	}

	if node.InputTokens > 0 || node.OutputTokens > 0 {
		if node.OutputTokens > 0 {
			details = append(details, fmt.Sprintf("tokens(in=%d,out=%d)", node.InputTokens, node.OutputTokens))
		} else {
			details = append(details, fmt.Sprintf("tokens(in=%d)", node.InputTokens))
		}
	}

	if likely, _ := node.Metadata["overflowLikely"].(bool); likely {
		details = append(details, "overflow likely")
	}

	if node.ActCost != nil {
		details = append(details, fmt.Sprintf("$%.6f", *node.ActCost))
	}

	if len(details) > 0 {
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(details, ", ")))
	}

	return strings.Join(parts, " ")
}
