package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"j5.nz/cc64/internal/ir"
)

func TestParsesSimpleFunctionDefinition(t *testing.T) {
	p := parseSource(t, `
int add(int a, int b) {
	return a + b;
}
`)
	require.Len(t, p.Functions, 1)
	fn := p.Functions[0]
	assert.Equal(t, "add", fn.Name)
	require.NoError(t, ir.Verify(fn))
}

func TestParsesGlobalVariableWithScalarInitializer(t *testing.T) {
	p := parseSource(t, `int counter = 7;`)
	g, ok := p.Globals["counter"]
	require.True(t, ok)
	require.Len(t, g.Init, 1)
}

func TestParsesExternDeclarationWithNoInitializer(t *testing.T) {
	p := parseSource(t, `extern int errno_like;`)
	g, ok := p.Globals["errno_like"]
	require.True(t, ok)
	assert.True(t, g.IsExtern)
	assert.Nil(t, g.Init)
}

func TestParsesStaticGlobal(t *testing.T) {
	p := parseSource(t, `static int hidden = 1;`)
	g, ok := p.Globals["hidden"]
	require.True(t, ok)
	assert.True(t, g.IsStatic)
}

func TestParsesWhileLoopIntoVerifiableIR(t *testing.T) {
	p := parseSource(t, `
int countdown(int n) {
	int total = 0;
	while (n > 0) {
		total = total + n;
		n = n - 1;
	}
	return total;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesForLoopWithBreakAndContinue(t *testing.T) {
	p := parseSource(t, `
int sumEven(int n) {
	int total = 0;
	for (int i = 0; i < n; i = i + 1) {
		if (i % 2 != 0) {
			continue;
		}
		if (i > 1000) {
			break;
		}
		total = total + i;
	}
	return total;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesDoWhileLoop(t *testing.T) {
	p := parseSource(t, `
int atLeastOnce(int n) {
	int count = 0;
	do {
		count = count + 1;
		n = n - 1;
	} while (n > 0);
	return count;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesStructDeclarationAndMemberAccess(t *testing.T) {
	p := parseSource(t, `
struct point { int x; int y; };
int getX(struct point p) {
	return p.x;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesPointerArithmeticAndIndirection(t *testing.T) {
	p := parseSource(t, `
int deref(int *p) {
	return *(p + 1);
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesStringLiteralsIntoRodataEntries(t *testing.T) {
	p := parseSource(t, `
char *greeting(void) {
	return "hello, world";
}
`)
	lits := p.StringLiterals()
	require.Len(t, lits, 1)
	assert.Equal(t, "hello, world\x00", string(lits[0].Data), "decoded string data always carries a trailing NUL")
}

func TestParsesHexOctalAndBinaryIntegerLiterals(t *testing.T) {
	p := parseSource(t, `
int constants(void) {
	return 0x1F + 010 + 5;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesRecursiveFunctionCall(t *testing.T) {
	p := parseSource(t, `
int factorial(int n) {
	if (n <= 1) {
		return 1;
	}
	return n * factorial(n - 1);
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesTernaryConditionalExpression(t *testing.T) {
	p := parseSource(t, `
int maxOf(int a, int b) {
	return a > b ? a : b;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesCompoundAssignmentOperators(t *testing.T) {
	p := parseSource(t, `
int accumulate(int n) {
	int total = 0;
	total += n;
	total -= 1;
	total *= 2;
	return total;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesTypedefAndUsesItAsADeclarationSpecifier(t *testing.T) {
	p := parseSource(t, `
typedef int myint;
myint triple(myint n) {
	return n * 3;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesEnumConstantsUsableAsIntegerExpressions(t *testing.T) {
	p := parseSource(t, `
enum color { RED, GREEN, BLUE };
int isGreen(enum color c) {
	return c == GREEN;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesLocalArrayDeclarationAndIndexing(t *testing.T) {
	p := parseSource(t, `
int first(void) {
	int xs[3];
	xs[0] = 42;
	return xs[0];
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}

func TestParsesGotoAndLabel(t *testing.T) {
	p := parseSource(t, `
int loopViaGoto(int n) {
	int total = 0;
top:
	if (n <= 0) {
		goto done;
	}
	total = total + n;
	n = n - 1;
	goto top;
done:
	return total;
}
`)
	require.Len(t, p.Functions, 1)
	require.NoError(t, ir.Verify(p.Functions[0]))
}
