package queryutil

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/cirrusws/cirrus-sdk-go/shape"
)

func instanceShape() *shape.Member {
	return &shape.Member{
		Name: "DescribeInput",
		Type: shape.TypeStruct,
		Fields: []shape.Member{
			{Name: "name", Type: shape.TypeString},
			{Name: "count", Type: shape.TypeInteger},
			{Name: "enabled", Type: shape.TypeBool},
			{Name: "tags", Type: shape.TypeMap,
				MapKey:   &shape.Member{Type: shape.TypeString},
				MapValue: &shape.Member{Type: shape.TypeString},
			},
			{Name: "ids", Type: shape.TypeList,
				ListMember: &shape.Member{Type: shape.TypeString},
			},
			{Name: "filter", Type: shape.TypeStruct,
				Fields: []shape.Member{
					{Name: "key", Type: shape.TypeString},
					{Name: "values", Type: shape.TypeList,
						ListMember: &shape.Member{Type: shape.TypeString},
					},
				},
			},
		},
	}
}

func TestBuildNestedPaths(t *testing.T) {
	v := shape.Struct(
		shape.Field("name", shape.String("web")),
		shape.Field("ids", shape.ListOf(shape.String("i-1"), shape.String("i-2"))),
		shape.Field("filter", shape.Struct(
			shape.Field("key", shape.String("state")),
			shape.Field("values", shape.ListOf(shape.String("running"))),
		)),
	)

	values := url.Values{}
	err := Build(values, instanceShape(), v, false)
	assert.NilError(t, err)

	assert.Check(t, is.Equal(values.Get("name"), "web"))
	assert.Check(t, is.Equal(values.Get("ids.1"), "i-1"))
	assert.Check(t, is.Equal(values.Get("ids.2"), "i-2"))
	assert.Check(t, is.Equal(values.Get("filter.key"), "state"))
	assert.Check(t, is.Equal(values.Get("filter.values.1"), "running"))
}

// Encoding the same logical value twice, with map entries inserted in
// different orders, must produce byte-identical output. Signatures
// depend on it.
func TestBuildDeterministic(t *testing.T) {
	forward := shape.Struct(
		shape.Field("name", shape.String("web")),
		shape.Field("tags", shape.Map(
			shape.Field("env", shape.String("prod")),
			shape.Field("team", shape.String("infra")),
			shape.Field("app", shape.String("api")),
		)),
	)
	backward := shape.Struct(
		shape.Field("tags", shape.Map(
			shape.Field("app", shape.String("api")),
			shape.Field("team", shape.String("infra")),
			shape.Field("env", shape.String("prod")),
		)),
		shape.Field("name", shape.String("web")),
	)

	a, b := url.Values{}, url.Values{}
	assert.NilError(t, Build(a, instanceShape(), forward, false))
	assert.NilError(t, Build(b, instanceShape(), backward, false))
	assert.Check(t, is.Equal(a.Encode(), b.Encode()))
	assert.Check(t, is.Equal(a.Encode(), "name=web&tags.app=api&tags.env=prod&tags.team=infra"))
}

func TestBuildEC2Casing(t *testing.T) {
	root := &shape.Member{
		Type: shape.TypeStruct,
		Fields: []shape.Member{
			{Name: "a", Type: shape.TypeStruct,
				Fields: []shape.Member{
					{Name: "b", Type: shape.TypeString},
				},
			},
		},
	}
	v := shape.Struct(
		shape.Field("a", shape.Struct(shape.Field("b", shape.String("x")))),
	)

	values := url.Values{}
	assert.NilError(t, Build(values, root, v, true))
	assert.Check(t, is.Equal(values.Encode(), "A.B=x"))
}

func TestBuildScalars(t *testing.T) {
	root := &shape.Member{
		Type: shape.TypeStruct,
		Fields: []shape.Member{
			{Name: "when", Type: shape.TypeTimestamp},
			{Name: "data", Type: shape.TypeBlob},
			{Name: "on", Type: shape.TypeBool},
		},
	}
	v := shape.Struct(
		shape.Field("when", shape.Time(time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))),
		shape.Field("data", shape.Blob([]byte("hi"))),
		shape.Field("on", shape.Bool(true)),
	)

	values := url.Values{}
	assert.NilError(t, Build(values, root, v, false))
	assert.Check(t, is.Equal(values.Get("when"), "2024-05-01T12:30:00.000Z"))
	assert.Check(t, is.Equal(values.Get("data"), "aGk="))
	assert.Check(t, is.Equal(values.Get("on"), "true"))
}

func TestRoundTrip(t *testing.T) {
	root := instanceShape()
	v := shape.Struct(
		shape.Field("name", shape.String("web")),
		shape.Field("count", shape.Int(3)),
		shape.Field("enabled", shape.Bool(true)),
		shape.Field("tags", shape.Map(
			shape.Field("env", shape.String("prod")),
		)),
		shape.Field("ids", shape.ListOf(shape.String("i-1"), shape.String("i-2"))),
		shape.Field("filter", shape.Struct(
			shape.Field("key", shape.String("state")),
			shape.Field("values", shape.ListOf(shape.String("running"), shape.String("pending"))),
		)),
	)

	values := url.Values{}
	assert.NilError(t, Build(values, root, v, false))

	got, err := Parse(values, root)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, v, cmpopts.EquateEmpty())
}

func TestParseRejectsBadScalars(t *testing.T) {
	root := &shape.Member{
		Type: shape.TypeStruct,
		Fields: []shape.Member{
			{Name: "count", Type: shape.TypeInteger},
			{Name: "state", Type: shape.TypeString, Enum: []string{"on", "off"}},
		},
	}

	_, err := Parse(url.Values{"count": {"not-a-number"}}, root)
	assert.ErrorContains(t, err, "malformed number")

	_, err = Parse(url.Values{"state": {"standby"}}, root)
	assert.ErrorContains(t, err, "not recognized")
}
