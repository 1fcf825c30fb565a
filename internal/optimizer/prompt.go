package optimizer

import "strings"

const promptHeader = `You are an expert in Power Query M and Power BI performance tuning.
Rewrite the Power Query M code below so that it produces the same result with fewer
steps and better performance. Apply any of the following patterns that are relevant:

1. Preserve query folding: keep foldable steps (filters, column selection, joins,
   grouping) before any step that breaks folding.
2. Filter rows as early as possible.
3. Remove unused columns early with Table.SelectColumns rather than Table.RemoveColumns.
4. Combine consecutive Table.TransformColumnTypes calls into one.
5. Combine consecutive Table.RenameColumns calls into one.
6. Combine consecutive Table.SelectRows calls into a single predicate.
7. Replace Table.AddColumn followed by type changes with a typed Table.AddColumn.
8. Remove redundant Table.Sort steps that do not affect the output.
9. Replace row-by-row lookups with Table.NestedJoin or Table.Join.
10. Use Table.Buffer or List.Buffer only where a value is re-evaluated repeatedly.
11. Replace repeated List.Contains over large lists with a buffered list or a join.
12. Prefer Table.Group aggregations over manual accumulation.
13. Avoid Table.Distinct on the full table when only key columns matter.
14. Push transformations to the source with native query options where safe.
15. Replace nested each expressions with named functions when reused.
16. Remove steps that are immediately overwritten or never referenced.
17. Replace Table.ReplaceValue chains with a single Table.TransformColumns.
18. Use Table.ExpandTableColumn with only the required columns.
19. Set explicit column types once, as late as folding allows.
20. Avoid Table.RowCount and other full scans inside loops.
21. Parameterize hard-coded file paths and server names.
22. Keep step names meaningful and consistent.

Return ONLY a JSON object, with no surrounding prose or code fences, in exactly this shape:

{
  "optimizedCode": "the complete optimized Power Query M code",
  "improvements": [
    {
      "pattern": "short name of the pattern applied",
      "description": "what was changed and why",
      "impact": "High, Medium or Low"
    }
  ],
  "metrics": {
    "originalSteps": 0,
    "optimizedSteps": 0,
    "reduction": "percentage of steps removed, e.g. 40%",
    "estimatedSpeedGain": "estimated speed improvement, e.g. 2-3x"
  },
  "warnings": ["behavioral differences or assumptions the user should verify"]
}

Power Query M code to optimize:
`

// Prompt builds the instruction sent to the model for code.
func Prompt(code string) string {
	var b strings.Builder
	b.Grow(len(promptHeader) + len(code) + 16)
	b.WriteString(promptHeader)
	b.WriteString("\n")
	b.WriteString(code)
	b.WriteString("\n")
	return b.String()
}
