package neoframe

import (
	"fmt"
	"strings"
)

// QuoteIdentifier backtick-quotes a label, relationship type or property
// name for use in Cypher. Embedded backticks are doubled.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// MergeNodesCypher returns the statement that merges one batch of node
// records. Records are passed as $rows, each a list aligned to keySchema;
// keySchema[0] must be the merge key column.
func MergeNodesCypher(label string, keySchema []string) string {
	var b strings.Builder
	b.WriteString("UNWIND $rows AS row\n")
	fmt.Fprintf(&b, "MERGE (n:%s {%s: row[0]})\n", QuoteIdentifier(label), QuoteIdentifier(keySchema[0]))
	if len(keySchema) > 1 {
		sets := make([]string, 0, len(keySchema)-1)
		for i, col := range keySchema[1:] {
			sets = append(sets, fmt.Sprintf("n.%s = row[%d]", QuoteIdentifier(col), i+1))
		}
		b.WriteString("SET " + strings.Join(sets, ", ") + "\n")
	}
	b.WriteString("RETURN count(n) AS merged")
	return b.String()
}

// MergeRelationshipsCypher returns the statement that merges one batch of
// relationship records. Records are passed as $rows, each a map with
// "source", "props" and "target" entries. Both endpoint nodes must exist;
// rows whose endpoints are missing are skipped by the MATCH.
func MergeRelationshipsCypher(name string, start, end NodeKey) string {
	var b strings.Builder
	b.WriteString("UNWIND $rows AS row\n")
	fmt.Fprintf(&b, "MATCH (a:%s {%s: row.source})\n", QuoteIdentifier(start.Label), QuoteIdentifier(start.Column))
	fmt.Fprintf(&b, "MATCH (b:%s {%s: row.target})\n", QuoteIdentifier(end.Label), QuoteIdentifier(end.Column))
	fmt.Fprintf(&b, "MERGE (a)-[r:%s]->(b)\n", QuoteIdentifier(name))
	b.WriteString("SET r += row.props\n")
	b.WriteString("RETURN count(r) AS merged")
	return b.String()
}

// nodeRows converts records into $rows parameters.
func nodeRows(records []NodeRecord) []any {
	rows := make([]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v.Any()
		}
		rows[i] = row
	}
	return rows
}

// edgeRows converts records into $rows parameters.
func edgeRows(records []EdgeRecord) []any {
	rows := make([]any, len(records))
	for i, rec := range records {
		props := make(map[string]any, len(rec.Properties))
		for k, v := range rec.Properties {
			props[k] = v.Any()
		}
		rows[i] = map[string]any{
			"source": rec.Source.Any(),
			"props":  props,
			"target": rec.Target.Any(),
		}
	}
	return rows
}
