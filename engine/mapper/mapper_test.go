package mapper

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/bentomdb/graphchangelog/engine/changelog"
	"github.com/bentomdb/graphchangelog/engine/model"
)

func tmpSeq(t *testing.T, startID int) *changelog.ChangesetIDSequence {
	t.Helper()
	path := t.TempDir() + "/changelog.ini"
	content := "[changelog]\nchangeset_id = " + strconv.Itoa(startID) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	seq, err := changelog.NewChangesetIDSequence(path)
	if err != nil {
		t.Fatalf("NewChangesetIDSequence: %v", err)
	}
	return seq
}

func TestConvertModelToChangelogMergesTermsAndCreatesNodes(t *testing.T) {
	term := &model.Term{Value: "Lung", Origin: "NCIt"}
	vs := &model.ValueSet{Handle: "vs1", Terms: map[string]*model.Term{"Lung": term}}
	node := &model.Node{Handle: "diagnosis", Model: "TEST"}
	prop := &model.Property{Handle: "site", ParentHandle: "diagnosis", Model: "TEST", ValueSet: vs}

	m := &model.Model{
		Handle: "TEST",
		Nodes:  map[string]*model.Node{"diagnosis": node},
		Props:  map[model.PropKey]*model.Property{prop.Key(): prop},
		Terms:  map[model.TermKey]*model.Term{term.Key(): term},
	}

	seq := tmpSeq(t, 1)
	conv := NewConverter(m, "tester", "")
	cl, err := conv.Convert(seq)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if cl.Len() == 0 {
		t.Fatal("expected non-empty changelog")
	}
	var sawMergeTerm, sawCreateNode bool
	for _, cs := range cl.Changesets {
		if strings.Contains(cs.Change.Text, "MERGE") && strings.Contains(cs.Change.Text, "term") {
			sawMergeTerm = true
			if cs.Change.RollbackText != "empty" {
				t.Fatalf("expected empty rollback for term merge, got %q", cs.Change.RollbackText)
			}
		}
		if strings.Contains(cs.Change.Text, "CREATE") && strings.Contains(cs.Change.Text, "node") {
			sawCreateNode = true
			if !strings.Contains(cs.Change.RollbackText, "DETACH DELETE") {
				t.Fatalf("expected DETACH DELETE rollback for node create, got %q", cs.Change.RollbackText)
			}
		}
	}
	if !sawMergeTerm {
		t.Error("expected a MERGE statement for the term")
	}
	if !sawCreateNode {
		t.Error("expected a CREATE statement for the node")
	}
}

func TestConvertTermsOnly(t *testing.T) {
	term := &model.Term{Value: "Kidney", Origin: "NCIm"}
	m := &model.Model{Handle: "TEST", Terms: map[model.TermKey]*model.Term{term.Key(): term}}
	seq := tmpSeq(t, 100)
	conv := NewConverter(m, "tester", "")
	cl, err := conv.ConvertTermsOnly(seq)
	if err != nil {
		t.Fatalf("ConvertTermsOnly: %v", err)
	}
	if cl.Len() != 1 {
		t.Fatalf("expected 1 changeset, got %d", cl.Len())
	}
	if cl.Changesets[0].ID != "100" {
		t.Fatalf("expected changeset ID 100, got %s", cl.Changesets[0].ID)
	}
}
