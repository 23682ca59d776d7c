package mcpserver

// OrderingRules explains how tours are numbered so that LLM consumers build
// valid reorder and move requests.
const OrderingRules = `# Tourdesk Ordering Rules

A tour is an ordered list of days. Each day is an ordered list of items.

## Days

- Days carry a ` + "`" + `logicalDayNumber` + "`" + `. Numbers are dense and start at 1.
- The ` + "`" + `calendarDate` + "`" + ` never changes when days are reordered.
- Creating a day appends it after the last day. Deleting a day renumbers the
  remaining days and deletes its items.
- ` + "`" + `reorder_days` + "`" + ` must list EVERY day of the tour exactly once. A partial
  list, a foreign day, or a duplicate is rejected and nothing changes.
- ` + "`" + `swap_days` + "`" + ` exchanges two numbers in the same tour. Swapping twice restores
  the original order.

## Items

- Items carry a zero-based ` + "`" + `position` + "`" + `. Positions are dense within a day.
- ` + "`" + `move_item` + "`" + ` inserts at ` + "`" + `newPosition` + "`" + ` and shifts later items down. Omit the
  position to append. Moving to another day closes the gap in the source day.
- A position past the end of the target day is rejected.

## Linked records

Days link to tastes, routes, tickets and a hotel (a stay) by id. Items link to
one taste, route or stay. Links that no longer resolve are returned as empty.
Use ` + "`" + `search_catalog` + "`" + ` to find ids.
`
