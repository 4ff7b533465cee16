package p21

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('test'),'2;1');
FILE_NAME('board.stp','2026-01-01T00:00:00',('J. O''Neil'),(''),'','','');
FILE_SCHEMA(('AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }'));
ENDSEC;
DATA;
/* a comment
   spanning lines */
#1=CARTESIAN_POINT('',(0.,1.5,-2.E-03));
#2=DIRECTION('',(0.,0.,1.));
#3=AXIS2_PLACEMENT_3D('',#1,#2,$);
#4=(LENGTH_UNIT()NAMED_UNIT(*)SI_UNIT(.MILLI.,.METRE.));
#5=UNCERTAINTY_MEASURE_WITH_UNIT(LENGTH_MEASURE(1.E-07),#4,'distance_accuracy_value','');
#6=PRODUCT('Gr\X2\00FC\X0\n','back\\slash','',());
#7=B_SPLINE_CURVE_WITH_KNOTS('',3,(#1,#1),.UNSPECIFIED.,.F.,.T.,(4,4),(0.,1.),.UNSPECIFIED.);
ENDSEC;
END-ISO-10303-21;
`

func TestParseSample(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 7, f.Len())
	require.Len(t, f.Header, 3)
	name, ok := f.HeaderRecord("FILE_NAME")
	require.True(t, ok)
	author := name.Arg(2).List
	require.Len(t, author, 1)
	assert.Equal(t, "J. O'Neil", author[0].Str)

	pt := f.Get(1)
	require.NotNil(t, pt)
	assert.Equal(t, "CARTESIAN_POINT", pt.Type())
	assert.Equal(t, 10, pt.Line)
	coords, ok := pt.Arg(1).Items()
	require.True(t, ok)
	require.Len(t, coords, 3)
	z, ok := coords[2].Float()
	require.True(t, ok)
	assert.InDelta(t, -2e-3, z, 1e-15)

	ax := f.Get(3)
	assert.Equal(t, Unset, ax.Arg(3).Kind)
	assert.Equal(t, f.Get(2), f.Deref(ax.Arg(2)))

	unit := f.Get(4)
	assert.True(t, unit.Complex())
	assert.True(t, unit.Is("SI_UNIT"))
	assert.False(t, unit.Is("PLANE_ANGLE_UNIT"))
	si, ok := unit.Record("SI_UNIT")
	require.True(t, ok)
	prefix, _ := si.Arg(0).Text()
	assert.Equal(t, "MILLI", prefix)
	named, _ := unit.Record("NAMED_UNIT")
	assert.Equal(t, Derived, named.Arg(0).Kind)

	unc := f.Get(5)
	assert.Equal(t, Typed, unc.Arg(0).Kind)
	assert.Equal(t, "LENGTH_MEASURE", unc.Arg(0).Str)
	v, ok := unc.Arg(0).Float()
	require.True(t, ok)
	assert.InDelta(t, 1e-7, v, 1e-20)

	prod := f.Get(6)
	assert.Equal(t, "Grün", prod.Arg(0).Str)
	assert.Equal(t, `back\slash`, prod.Arg(1).Str)

	bs := f.Get(7)
	deg, ok := bs.Arg(1).Integer()
	require.True(t, ok)
	assert.Equal(t, 3, deg)
	closed, ok := bs.Arg(4).Bool()
	require.True(t, ok)
	assert.False(t, closed)

	assert.Len(t, f.OfType("CARTESIAN_POINT"), 1)
	assert.Len(t, f.OfType("LENGTH_UNIT"), 1)
	assert.Empty(t, f.OfType("CIRCLE"))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"missing magic", "HEADER;\n", 1},
		{"unterminated string", "ISO-10303-21;\nHEADER;\nFILE_NAME('abc);\n", 3},
		{"missing comma", "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=A(1 2);\nENDSEC;\nEND-ISO-10303-21;\n", 5},
		{"duplicate instance", "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=A();\n#1=B();\nENDSEC;\nEND-ISO-10303-21;\n", 6},
		{"truncated", "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=A(", 5},
		{"bad character", "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n\n#1=A(@);\n", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %T", err)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestFormatReal(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0."},
		{1, "1."},
		{-2.5, "-2.5"},
		{1.6, "1.6"},
		{1e-7, "1.E-07"},
		{-3.25e-6, "-3.25E-06"},
		{1e20, "1.E+20"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatReal(tt.in), "%v", tt.in)
	}
}

func TestValueSyntaxRoundTrip(t *testing.T) {
	v := ListOf(
		Str("it's"),
		Str("Grün"),
		Float(1e-7),
		Int(-4),
		EnumOf("T"),
		RefTo(12),
		Null,
		Star,
		TypedOf("LENGTH_MEASURE", Float(2)),
	)
	text := v.String()
	assert.Equal(t, `('it''s','Gr\X2\00FC\X0\n',1.E-07,-4,.T.,#12,$,*,LENGTH_MEASURE(2.))`, text)

	src := "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=X(" + text + ");\nENDSEC;\nEND-ISO-10303-21;\n"
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	got := f.Get(1).Arg(0)
	assert.Equal(t, text, got.String())
}
