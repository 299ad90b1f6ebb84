// Package nanos implements NANOS, an ordered container that mixes
// index-keyed and named values, and SLID, its text format.
//
// A Container behaves like an array and an insertion-ordered map at once:
//   - Index keys ("0", "1", ...) always appear in ascending order
//   - Named keys may sit anywhere between them
//   - Next tracks one more than the highest index, so holes are preserved
//   - Values, the key set or the whole container can be locked
//   - Entries can be redacted from serialized output
//
// # Key Placement
//
// A new index key goes to the latest position that keeps indices ascending
// (append mode) or the earliest (insert mode). Given keys [a 1 b 3 c],
// setting 2 appends between b and 3 and inserts between 1 and b.
//
// # SLID Syntax
//
// Document:   [( items )]
// Item:       value or key=value
// List:       [ items ]
// Specials:   @e (hole) @f @n @t @u (undefined)
// Numbers:    12 -3 0x1f 0b101 1.5e3 NaN Infinity 123n
// Strings:    bare_word 'quoted' "quoted"
// Comments:   /* ... */
//
// An unkeyed value takes the next index. The text )] inside a document is
// written )\] and decoded before tokenizing.
//
// # Example
//
//	c := nanos.New()
//	c.Push(1, "two")
//	c.Set("id", 3)
//	c.Set("status", "ok")
//	c.String() // [(1 two id=3 status=ok)]
//
// # QJSON
//
// ParseQJSON accepts relaxed JSON such as {a:1, b:[true, null]} by mapping
// braces to brackets, commas to spaces and colons to = outside quotes.
//
// # Reactive Adapters
//
// A RIO connects a container to an external dependency tracker. See RIO
// and ExtendedRIO.
package nanos
