package fmexpr

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent      // bare word: true/false/null, object keys, and property/method names after '.'
	tokDollarIdent // $json, $max, ... (disambiguated at parse time by trailing '(')
	tokDollarCall  // lone '$' immediately followed by '('
	tokPunct       // single/double-char operators and punctuation, Text holds the literal
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}
