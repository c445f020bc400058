package mapping

import (
	"strings"
	"testing"

	"github.com/bentomdb/graphchangelog/engine/cypher"
)

func TestParentsAsListDottedPath(t *testing.T) {
	got, err := ParentsAsList("case.diagnosis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"case", "diagnosis"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParentsAsListBareString(t *testing.T) {
	got, err := ParentsAsList("diagnosis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "diagnosis" {
		t.Fatalf("got %v", got)
	}
}

func TestParentsAsListBracketedLiteral(t *testing.T) {
	got, err := ParentsAsList([]any{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1] != "b" {
		t.Fatalf("got %v", got)
	}
}

func TestGenerateMappingCypherHasThreeForeachArms(t *testing.T) {
	srcEnt := cypher.NewNode("property", []cypher.Attr{{Key: "handle", Value: "site"}, {Key: "model", Value: "A"}})
	dstEnt := cypher.NewNode("property", []cypher.Attr{{Key: "handle", Value: "site"}, {Key: "model", Value: "B"}})
	srcParent := cypher.NewNode("", []cypher.Attr{{Key: "handle", Value: "diagnosis"}, {Key: "model", Value: "A"}})
	dstParent := cypher.NewNode("", []cypher.Attr{{Key: "handle", Value: "diagnosis"}, {Key: "model", Value: "B"}})
	stmt := GenerateMappingCypher(srcEnt, dstEnt, srcParent, dstParent, "has_property", "A", "")
	text := stmt.Text()
	if strings.Count(text, "FOREACH") != 3 {
		t.Fatalf("expected 3 FOREACH arms, got text: %q", text)
	}
	if !strings.Contains(text, "OPTIONAL MATCH") {
		t.Fatalf("expected OPTIONAL MATCH for existing-concept probes, got %q", text)
	}
}

func TestProcessPropsRequiresPropsKey(t *testing.T) {
	_, err := ProcessProps(&Doc{Source: "A"}, "")
	if err == nil {
		t.Fatal("expected error for missing Props key")
	}
}
