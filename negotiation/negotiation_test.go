package negotiation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccept(t *testing.T) {
	assert.Equal(t, "b/b", SelectQValue("a/a; q=0.5, b/b;q=1.0,c/c; q=0.3", []string{"a/a", "b/b", "d/d"}))
}

func TestAcceptBest(t *testing.T) {
	assert.Equal(t, "b/b", SelectQValue("a/a; q=1.0, b/b;q=1.0,c/c; q=0.3", []string{"b/b", "a/a"}))
}

func TestAcceptSimple(t *testing.T) {
	assert.Equal(t, "b/b", SelectQValue("a/a; q=0.5, b/b,c/c; q=0.3", []string{"a/a", "b/b", "c/c"}))
}

func TestAcceptWildcard(t *testing.T) {
	header := "application/ion;q=0.6,application/json;q=0.5,application/yaml;q=0.5,text/*;q=0.2,application/cbor;q=0.9,application/msgpack;q=0.8,*/*;q=0.1"
	assert.Equal(t, "application/cbor", SelectQValue(header, []string{"application/json", "application/cbor"}))
	assert.Equal(t, "application/json", SelectQValue("*/*", []string{"application/json", "application/cbor"}))
	assert.Equal(t, "application/json", SelectQValue("", []string{"application/json", "application/cbor"}))
}

func TestNoMatch(t *testing.T) {
	assert.Equal(t, "", SelectQValue("a/a; q=1.0, b/b;q=1.0,c/c; q=0.3", []string{"d/d", "e/e"}))
	assert.Equal(t, "", SelectQValue("application/json;q=0", []string{"application/json"}))
	assert.Equal(t, "", SelectQValue("bad", []string{"application/json"}))
}

func TestParse(t *testing.T) {
	mt, err := Parse(" application/vnd.acme+json ; charset=UTF-8;q=.8 ")
	require.NoError(t, err)
	assert.Equal(t, "application", mt.Type)
	assert.Equal(t, "vnd.acme+json", mt.Subtype)
	assert.Equal(t, "UTF-8", mt.Param("CHARSET"))
	assert.Equal(t, ".8", mt.Param(QParam))
	assert.Equal(t, "application/vnd.acme+json;charset=UTF-8;q=.8", mt.String())
	assert.Equal(t, "application/vnd.acme+json;charset=UTF-8", mt.Format(QParam, QSParam))
}

func TestParseWildcard(t *testing.T) {
	mt, err := Parse("*")
	require.NoError(t, err)
	assert.True(t, mt.IsWildcardType())
	assert.True(t, mt.IsWildcardSubtype())

	mt, err = Parse("text/*;q=0.3")
	require.NoError(t, err)
	assert.False(t, mt.IsWildcardType())
	assert.True(t, mt.IsWildcardSubtype())
}

func TestParseQuoted(t *testing.T) {
	mt, err := Parse(`multipart/mixed; boundary="a;b,c"; x=1`)
	require.NoError(t, err)
	assert.Equal(t, `"a;b,c"`, mt.Param("boundary"))
	assert.Equal(t, "1", mt.Param("x"))
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{"", "text", "/plain", "text/", `text/plain; a="unterminated`, "text/plain;=x"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
			var malformed *MalformedError
			assert.True(t, errors.As(err, &malformed))
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, input := range []string{
		"text/plain",
		"*/*",
		"application/json;charset=utf-8",
		`multipart/form-data; boundary="x,y"`,
		"application/vnd.foo+json; q=0.5; v=2",
		"text/html;level",
	} {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(input)
			require.NoError(t, err)
			second, err := Parse(first.String())
			require.NoError(t, err)
			assert.True(t, first.Equal(second), "%s != %s", first, second)
		})
	}
}

func TestParseList(t *testing.T) {
	list, err := ParseList(`text/plain; q=0.5, application/x; name="a,b" ,, text/html`)
	require.NoError(t, err)
	assert.Equal(t, []string{"text/plain;q=0.5", `application/x;name="a,b"`, "text/html"}, Strings(list))

	list, err = ParseList("")
	require.NoError(t, err)
	assert.Equal(t, []MediaType{All}, list)

	_, err = ParseList(`text/plain; a="b, text/html`)
	assert.ErrorIs(t, err, ErrMalformed)
}

var compatCases = []struct {
	a, b       string
	compatible bool
}{
	{"*/*", "text/plain", true},
	{"text/*", "text/plain", true},
	{"text/plain", "TEXT/PLAIN", true},
	{"text/plain", "text/html", false},
	{"text/*", "application/json", false},
	{"application/vnd.foo+json", "application/*+json", true},
	{"application/vnd.foo+json", "application/vnd.foo+*", true},
	{"application/vnd.foo+json", "application/vnd.bar+json", false},
	{"application/vnd.foo+json", "application/json", false},
	{"text/plain;charset=utf-8", "text/plain;charset=UTF-8", true},
	{`text/plain;charset="utf-8"`, "text/plain;charset=utf-8", true},
	{"text/plain;format=flowed", "text/plain;format=fixed", false},
	{"text/plain;format=flowed", "text/plain", true},
	{"text/plain;q=0.1", "text/plain;q=0.9", true},
}

func TestCompatible(t *testing.T) {
	for _, c := range compatCases {
		t.Run(c.a+" "+c.b, func(t *testing.T) {
			a, b := MustParse(c.a), MustParse(c.b)
			assert.Equal(t, c.compatible, Compatible(a, b))
		})
	}
}

func TestCompatibleSymmetric(t *testing.T) {
	rules := []Rules{{}, {PartialSubtypes: true}}
	for _, r := range rules {
		for _, c := range compatCases {
			a, b := MustParse(c.a), MustParse(c.b)
			assert.Equal(t, r.Compatible(a, b), r.Compatible(b, a), "%s / %s", c.a, c.b)
		}
	}
}

func TestCompatiblePartialSubtypes(t *testing.T) {
	strict := Rules{}
	partial := Rules{PartialSubtypes: true}

	a := MustParse("application/vnd.foo+json")
	b := MustParse("application/json")
	assert.False(t, strict.Compatible(a, b))
	assert.True(t, partial.Compatible(a, b))
	assert.True(t, partial.Compatible(a, MustParse("application/vnd.foo")))
	assert.False(t, partial.Compatible(a, MustParse("application/xml")))
}

func TestCompatibleVendorVersionWildcard(t *testing.T) {
	partial := Rules{PartialSubtypes: true}
	declared := MustParse("application/vnd.acme.v1+json")

	// A suffix wildcard only helps when the prefixes agree.
	assert.True(t, partial.Compatible(declared, MustParse("application/vnd.acme.v1+*")))
	assert.False(t, partial.Compatible(declared, MustParse("application/vnd.acme.v2+*")))
	assert.True(t, partial.Compatible(declared, MustParse("application/*+json")))
}

func TestIntersectAbsorbsWildcards(t *testing.T) {
	plain := MustParse("text/plain")
	assert.Equal(t, "text/plain", Intersect(All, plain, IntersectOptions{}).String())
	assert.Equal(t, "text/plain", Intersect(plain, All, IntersectOptions{}).String())
	assert.Equal(t, "application/vnd.foo+json", Intersect(MustParse("application/*+json"), MustParse("application/vnd.foo+json"), IntersectOptions{}).String())
}

func TestIntersectParamsAndDistance(t *testing.T) {
	required := MustParse("text/*;charset=utf-8")
	user := MustParse("text/plain;q=0.4")

	mt := Intersect(required, user, IntersectOptions{AddRequiredParams: true, AddDistance: true})
	assert.Equal(t, "text/plain;q=0.4;charset=utf-8;d=1", mt.String())

	mt = Intersect(All, user, IntersectOptions{AddDistance: true})
	assert.Equal(t, "2", mt.Param(DistanceParam))
}

func TestIntersectAll(t *testing.T) {
	required := MustParseList("text/*, application/json")
	user := MustParseList("text/plain, text/html, */*")

	out := Rules{}.IntersectAll(required, user, IntersectOptions{})
	assert.Equal(t, []string{"text/plain", "text/html", "text/*", "application/json"}, Strings(out))

	assert.True(t, Rules{}.Intersects(required, user))
	assert.False(t, Rules{}.Intersects(MustParseList("image/png"), MustParseList("text/plain")))
}

func TestIntersectAllDeduplicates(t *testing.T) {
	out := Rules{}.IntersectAll(MustParseList("text/plain, text/*"), MustParseList("text/plain"), IntersectOptions{})
	assert.Equal(t, []string{"text/plain"}, Strings(out))
}

func TestSortMonotonic(t *testing.T) {
	list := MustParseList("*/*, text/*, text/plain")
	assert.Equal(t, []string{"text/plain", "text/*", "*/*"}, Strings(Sort(list, "")))

	list = MustParseList("text/html;q=0.2, text/plain;q=0.8")
	assert.Equal(t, []string{"text/plain;q=0.8", "text/html;q=0.2"}, Strings(Sort(list, QParam)))
}

func TestQualityFactor(t *testing.T) {
	assert.Equal(t, 1.0, QualityFactor(""))
	assert.Equal(t, 0.5, QualityFactor(".5"))
	assert.Equal(t, 0.25, QualityFactor("0.25"))
	assert.Equal(t, 1.0, QualityFactor("abc"))
}

func TestCompareQualityAndDistance(t *testing.T) {
	a := MustParse("text/plain;q=0.5;qs=1;d=0")
	b := MustParse("text/plain;q=0.5;qs=0.5;d=0")
	assert.Equal(t, -1, CompareQualityAndDistance(a, b, false))

	c := MustParse("text/plain;d=2")
	d := MustParse("text/plain;d=0")
	assert.Equal(t, 0, CompareQualityAndDistance(c, d, false))
	assert.Equal(t, 1, CompareQualityAndDistance(c, d, true))
}

func TestCompareProduces(t *testing.T) {
	accept := MustParseList("application/xml;q=0.9,application/json;q=0.5")
	json := MustParseList("application/json")
	xml := MustParseList("application/xml")

	assert.Equal(t, 1, Rules{}.CompareProduces(json, xml, accept))
	assert.Equal(t, -1, Rules{}.CompareProduces(xml, json, accept))

	// A literal produces type beats a wildcard one.
	assert.Equal(t, -1, Rules{}.CompareProduces(json, MustParseList("*/*"), MustParseList("application/json")))
}

func TestCompareConsumes(t *testing.T) {
	ct := MustParse("application/json")
	assert.Equal(t, -1, Rules{}.CompareConsumes(MustParseList("application/json"), MustParseList("*/*"), ct))
	assert.Equal(t, -1, Rules{}.CompareConsumes(MustParseList("text/plain, application/json"), MustParseList("application/*"), ct))
}

func BenchmarkSelectQValue(b *testing.B) {
	header := "application/ion;q=0.6,application/json;q=0.5,application/yaml;q=0.5,text/*;q=0.2,application/cbor;q=0.9"
	allowed := []string{"application/json", "application/cbor"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		SelectQValue(header, allowed)
	}
}
