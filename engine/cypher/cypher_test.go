package cypher

import "testing"

func TestNodeRenderWithProps(t *testing.T) {
	b := NewBuilder()
	n := NewNode("node", []Attr{{Key: "handle", Value: "subject"}, {Key: "model", Value: "TEST"}})
	got := n.render(b, nil)
	want := "(n0:node {handle:'subject',model:'TEST'})"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNodePlainVarHasNoLabelOrProps(t *testing.T) {
	b := NewBuilder()
	n := NewNode("node", []Attr{{Key: "handle", Value: "subject"}})
	n.render(b, nil) // assigns n0
	if got, want := n.PlainVar(b), "(n0)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuilderMemoizesVarAcrossStatements(t *testing.T) {
	b := NewBuilder()
	n := NewNode("property", []Attr{{Key: "handle", Value: "diagnosis"}})
	s1 := NewStatementWithBuilder(b, Match(n))
	_ = s1.Text()
	other := NewNode("value_set", nil)
	s2 := NewStatementWithBuilder(b, Match(NewPath(NewTriple(n, NewRel("has_value_set", nil), other))))
	got := s2.Text()
	want := "MATCH (n0:property {handle:'diagnosis'})-[r0:has_value_set]->(n1:value_set)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTripleReversedRendersArrowBackward(t *testing.T) {
	b := NewBuilder()
	entC := NewNode("relationship", []Attr{{Key: "handle", Value: "of_subject"}, {Key: "model", Value: "TEST"}})
	src := NewNode("node", []Attr{{Key: "handle", Value: "diagnosis"}, {Key: "model", Value: "TEST"}})
	dst := NewNode("node", []Attr{{Key: "handle", Value: "subject"}, {Key: "model", Value: "TEST"}})
	srcTrip := NewTriple(entC, NewRel("has_src", nil), src)
	dstTrip := &Triple{Src: entC, Rel: NewRel("has_dst", nil), Dst: dst, Reversed: true}
	s := NewStatementWithBuilder(b, Match(NewPath(dstTrip, srcTrip)))
	got := s.Text()
	want := "MATCH (n2:node {handle:'subject',model:'TEST'})<-[r1:has_dst]-" +
		"(n0:relationship {handle:'of_subject',model:'TEST'})-[r0:has_src]->" +
		"(n1:node {handle:'diagnosis',model:'TEST'})"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEscapeQuotesIsIdempotent(t *testing.T) {
	once := escapeQuotes(`O'Brien said "hi"`)
	twice := escapeQuotes(once)
	if once != twice {
		t.Fatalf("escapeQuotes not idempotent: %q vs %q", once, twice)
	}
	if once != `O\'Brien said \"hi\"` {
		t.Fatalf("unexpected escape: %q", once)
	}
}

func TestParameterizedTextCapturesParamsInOrder(t *testing.T) {
	n := NewNode("node", []Attr{{Key: "handle", Value: "subject"}})
	s := NewStatement(Match(n), Set(Raw("n0.nanoid = $p2")))
	text, params := s.ParameterizedText()
	want := "MATCH (n0:node {handle:$p1}) SET n0.nanoid = $p2"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
	if params["p1"] != "subject" {
		t.Fatalf("expected p1=subject, got %v", params["p1"])
	}
}

func TestEmptyStatementRendersLiteralEmpty(t *testing.T) {
	if got, want := Empty().Text(), "empty"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
