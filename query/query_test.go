package query_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dflrisk/odfengine/astdfl"
	"github.com/dflrisk/odfengine/model"
	"github.com/dflrisk/odfengine/oerrors"
	"github.com/dflrisk/odfengine/query"
)

func buildFile(t *testing.T, src string) (*model.Model, *astdfl.ParsedFile) {
	t.Helper()
	pf, err := astdfl.ParseFile(src)
	require.NoError(t, err)
	m, err := model.Build(pf)
	require.NoError(t, err)
	return m, pf
}

const src = `
attacktree {
	toplevel root;
	root or a b;
	a prob=0.3 impact=10 objects=[srv];
	b prob=0.2 impact=100 objects=[srv] cond=(srv.exposed);
}
faulttree {
	toplevel froot;
	froot and f1 f2;
	f1 prob=0.5 impact=2 objects=[srv];
	f2 prob=0.4;
}
objectgraph {
	srv properties=[exposed];
}
formulas {
	{srv.exposed: 1, a: 1, b: 0} a || b;
	{srv.exposed: 1} p(a) >= 1/4;
	MostRiskyA(srv);
	unknownnode;
}
`

func TestRunEvaluatesEveryQueryAndIsolatesFailures(t *testing.T) {
	m, pf := buildFile(t, src)
	outcomes := query.Run(m, pf)
	require.Len(t, outcomes, 4)

	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, "Result: true", outcomes[0].Result)

	assert.NoError(t, outcomes[1].Err)
	assert.Equal(t, "Result: true (P(...) = 3/10 >= 1/4)", outcomes[1].Result)
	require.NotEmpty(t, outcomes[1].Warnings)

	assert.NoError(t, outcomes[2].Err)
	assert.Contains(t, outcomes[2].Result, `"b"`)

	require.Error(t, outcomes[3].Err)
	var qerr *oerrors.QueryError
	require.True(t, errors.As(outcomes[3].Err, &qerr))
	assert.Equal(t, 3, qerr.Index)
}

func TestExitCodeTakesWorstClassification(t *testing.T) {
	m, pf := buildFile(t, src)
	outcomes := query.Run(m, pf)
	assert.Equal(t, 2, query.ExitCode(outcomes))
}

func TestExitCodeZeroWhenEverythingSucceeds(t *testing.T) {
	m, pf := buildFile(t, `
attacktree {
	toplevel a;
	a prob=0.3;
}
faulttree {
	toplevel f;
	f prob=0.1;
}
objectgraph {}
formulas {
	a[a:1];
}
`)
	outcomes := query.Run(m, pf)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, "Result: true", outcomes[0].Result)
	assert.Equal(t, 0, query.ExitCode(outcomes))
}

func TestLayer1MissingConfigurationFails(t *testing.T) {
	m, pf := buildFile(t, `
attacktree {
	toplevel root;
	root or a b;
	a prob=0.3;
	b prob=0.2;
}
faulttree { toplevel f; f prob=0.1; }
objectgraph {}
formulas { a || b; }
`)
	out := query.Run(m, pf)
	require.Len(t, out, 1)
	require.Error(t, out[0].Err)
	assert.Equal(t, 3, query.ExitCode(out))
}
