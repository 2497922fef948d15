package confusables

import "github.com/kwall/kwall/internal/codepoint"

// seed stands in for the real ~6000-entry Unicode TR-39 confusables.txt
// asset (out of scope per the source specification). It covers the
// Cyrillic/Greek/fullwidth-Latin single-character lookalikes and a handful
// of common combining-diacritic and ligature forms RMT spam is known to
// lean on.
var seed = []Entry{
	// Cyrillic lookalikes of Latin letters.
	{From: codepoint.Sequence("а"), To: codepoint.Sequence("a")},
	{From: codepoint.Sequence("А"), To: codepoint.Sequence("A")},
	{From: codepoint.Sequence("В"), To: codepoint.Sequence("B")},
	{From: codepoint.Sequence("в"), To: codepoint.Sequence("b")},
	{From: codepoint.Sequence("С"), To: codepoint.Sequence("C")},
	{From: codepoint.Sequence("с"), To: codepoint.Sequence("c")},
	{From: codepoint.Sequence("Е"), To: codepoint.Sequence("E")},
	{From: codepoint.Sequence("е"), To: codepoint.Sequence("e")},
	{From: codepoint.Sequence("Н"), To: codepoint.Sequence("H")},
	{From: codepoint.Sequence("К"), To: codepoint.Sequence("K")},
	{From: codepoint.Sequence("к"), To: codepoint.Sequence("k")},
	{From: codepoint.Sequence("М"), To: codepoint.Sequence("M")},
	{From: codepoint.Sequence("О"), To: codepoint.Sequence("O")},
	{From: codepoint.Sequence("о"), To: codepoint.Sequence("o")},
	{From: codepoint.Sequence("Р"), To: codepoint.Sequence("P")},
	{From: codepoint.Sequence("р"), To: codepoint.Sequence("p")},
	{From: codepoint.Sequence("Т"), To: codepoint.Sequence("T")},
	{From: codepoint.Sequence("у"), To: codepoint.Sequence("y")},
	{From: codepoint.Sequence("Х"), To: codepoint.Sequence("X")},
	{From: codepoint.Sequence("х"), To: codepoint.Sequence("x")},

	// Greek lookalikes.
	{From: codepoint.Sequence("Α"), To: codepoint.Sequence("A")},
	{From: codepoint.Sequence("Β"), To: codepoint.Sequence("B")},
	{From: codepoint.Sequence("Ε"), To: codepoint.Sequence("E")},
	{From: codepoint.Sequence("Ζ"), To: codepoint.Sequence("Z")},
	{From: codepoint.Sequence("Η"), To: codepoint.Sequence("H")},
	{From: codepoint.Sequence("Ι"), To: codepoint.Sequence("I")},
	{From: codepoint.Sequence("Κ"), To: codepoint.Sequence("K")},
	{From: codepoint.Sequence("Μ"), To: codepoint.Sequence("M")},
	{From: codepoint.Sequence("Ν"), To: codepoint.Sequence("N")},
	{From: codepoint.Sequence("Ο"), To: codepoint.Sequence("O")},
	{From: codepoint.Sequence("Ρ"), To: codepoint.Sequence("P")},
	{From: codepoint.Sequence("Τ"), To: codepoint.Sequence("T")},
	{From: codepoint.Sequence("Υ"), To: codepoint.Sequence("Y")},
	{From: codepoint.Sequence("Χ"), To: codepoint.Sequence("X")},

	// Diacritic-bearing Latin letters ("bÜy gÖld" in the seed scenarios).
	// Entries are authored precomposed for readability; NewStaticMap
	// canonically decomposes each From key at construction time to match
	// the NFD'd text the Normaliser actually scans.
	{From: codepoint.Sequence("Ü"), To: codepoint.Sequence("u")},
	{From: codepoint.Sequence("ü"), To: codepoint.Sequence("u")},
	{From: codepoint.Sequence("Ö"), To: codepoint.Sequence("o")},
	{From: codepoint.Sequence("ö"), To: codepoint.Sequence("o")},
	{From: codepoint.Sequence("Ø"), To: codepoint.Sequence("o")},
	{From: codepoint.Sequence("ø"), To: codepoint.Sequence("o")},
	{From: codepoint.Sequence("Ć"), To: codepoint.Sequence("c")},
	{From: codepoint.Sequence("ć"), To: codepoint.Sequence("c")},
	{From: codepoint.Sequence("Ñ"), To: codepoint.Sequence("n")},
	{From: codepoint.Sequence("ñ"), To: codepoint.Sequence("n")},

	// Fullwidth Latin (U+FF01-FF5A block), commonly used to dodge literal
	// filters in game chat.
	{From: codepoint.Sequence("ｇ"), To: codepoint.Sequence("g")},
	{From: codepoint.Sequence("ｏ"), To: codepoint.Sequence("o")},
	{From: codepoint.Sequence("ｌ"), To: codepoint.Sequence("l")},
	{From: codepoint.Sequence("ｄ"), To: codepoint.Sequence("d")},

	// Multi-character confusables (longest-match-first handles these ahead
	// of any single-character entry above that might also apply).
	{From: codepoint.Sequence("rn"), To: codepoint.Sequence("m")},
	{From: codepoint.Sequence("vv"), To: codepoint.Sequence("w")},
}

// Seed returns the built-in seed table, used by NewDefaultMap and by
// callers that want to extend it with operator-supplied entries.
func Seed() []Entry {
	out := make([]Entry, len(seed))
	copy(out, seed)
	return out
}

// NewDefaultMap builds a Map from the seed table plus any supplemental
// entries an operator's configuration appends, per spec §4.2's note that
// the table is externalised as a static data asset the pipeline consumes
// through a replace-all interface without needing to know its contents.
func NewDefaultMap(extra []Entry) Map {
	all := Seed()
	all = append(all, extra...)
	return NewStaticMap(all)
}
