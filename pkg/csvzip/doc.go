/*
Package csvzip reads and writes the tabular side of a conversion: a set of CSV
files, optionally packed in one ZIP archive.

All files share one dialect: ';' as delimiter, every value quoted, '\n' as line
terminator and a header row first.

The files form a Hierarchy: one metadata table, one root table, and child
tables whose rows point to a parent row through the parent's ID column. The
Reader walks the rows parent-then-children and reports them to a Handler; a
Collector gathers produced rows and renders them as CSV text or as a ZIP.
*/
package csvzip
