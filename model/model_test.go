package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/model"
)

func mustParse(t *testing.T, src string) *astdfl.ParsedFile {
	t.Helper()
	pf, err := astdfl.ParseFile(src)
	require.NoError(t, err)
	return pf
}

const validSrc = `
attacktree {
	toplevel root;
	root or a b;
	a prob=0.3 objects=[srv];
	b prob=0.2 cond=(srv.exposed);
}
faulttree {
	toplevel froot;
	froot and f1 f2;
	f1 prob=0.1 objects=[srv];
	f2 prob=0.1;
}
objectgraph {
	srv has disk;
	srv properties=[exposed, patched];
	disk properties=[encrypted];
}
formulas {}
`

func TestBuildValidModel(t *testing.T) {
	pf := mustParse(t, validSrc)
	m, err := model.Build(pf)
	require.NoError(t, err)

	assert.Equal(t, "root", m.Attack.Root)
	assert.ElementsMatch(t, []string{"a", "b"}, m.Attack.Children("root"))
	assert.True(t, m.Attack.IsModule("root"))
	assert.True(t, m.Attack.IsModule("a"))
}

func TestParticipantsWithinOwnTree(t *testing.T) {
	pf := mustParse(t, validSrc)
	m, err := model.Build(pf)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, m.Attack.Participants("srv"))
	assert.Equal(t, []string{"f1"}, m.Fault.Participants("srv"))
}

func TestNotExactlyOneRoot(t *testing.T) {
	pf := mustParse(t, `
attacktree {
	root1 or a b;
	a prob=0.1;
	b prob=0.1;
}
faulttree { toplevel f; f prob=0.1; }
objectgraph {}
formulas {}
`)
	_, err := model.Build(pf)
	require.Error(t, err)
}

func TestUndeclaredChildIsCrossReferenceError(t *testing.T) {
	pf := mustParse(t, `
attacktree {
	toplevel root;
	root or a missing;
	a prob=0.1;
}
faulttree { toplevel f; f prob=0.1; }
objectgraph {}
formulas {}
`)
	_, err := model.Build(pf)
	require.Error(t, err)
}

func TestDuplicateNameAcrossStructures(t *testing.T) {
	pf := mustParse(t, `
attacktree { toplevel x; x prob=0.1; }
faulttree { toplevel x; x prob=0.1; }
objectgraph {}
formulas {}
`)
	_, err := model.Build(pf)
	require.Error(t, err)
}

func TestUndeclaredObjectPropertyReference(t *testing.T) {
	pf := mustParse(t, `
attacktree {
	toplevel root;
	root prob=0.1 cond=(srv.missing);
}
faulttree { toplevel f; f prob=0.1; }
objectgraph { srv properties=[exposed]; }
formulas {}
`)
	_, err := model.Build(pf)
	require.Error(t, err)
}

func TestIsModuleFalseWhenSharedByOutsideAncestor(t *testing.T) {
	pf := mustParse(t, `
attacktree {
	toplevel root;
	root or a shared;
	a or shared b;
	shared prob=0.1;
	b prob=0.1;
}
faulttree { toplevel f; f prob=0.1; }
objectgraph {}
formulas {}
`)
	m, err := model.Build(pf)
	require.NoError(t, err)
	assert.False(t, m.Attack.IsModule("a"))
	assert.True(t, m.Attack.IsModule("root"))
}
