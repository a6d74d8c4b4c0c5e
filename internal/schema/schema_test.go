package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDocument(t *testing.T) {
	nodes, err := Load()
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	root := nodes[0]
	assert.Equal(t, "DistributionConfig", root.Name)
	assert.Equal(t, Object, root.Kind)
	assert.True(t, root.Required)
	require.NotEmpty(t, root.Fields)

	// Declaration order must survive decoding: the converter visits
	// fields in this order.
	assert.Equal(t, "CallerReference", root.Fields[0].Name)
	assert.Equal(t, Generated, root.Fields[0].Kind)
	assert.True(t, root.Fields[0].Required)

	byName := map[string]Node{}
	for _, f := range root.Fields {
		byName[f.Name] = f
	}

	assert.Equal(t, Scalar, byName["Enabled"].Kind)
	assert.True(t, byName["Enabled"].Required)
	assert.Equal(t, ScalarList, byName["Aliases"].Kind)
	assert.False(t, byName["Aliases"].Required)
	assert.Equal(t, ObjectList, byName["Origins"].Kind)
	assert.NotEmpty(t, byName["Origins"].Fields)
	assert.Equal(t, Object, byName["DefaultCacheBehavior"].Kind)

	restrictions := byName["Restrictions"]
	assert.Equal(t, Object, restrictions.Kind)
	assert.False(t, restrictions.Required)
	require.Len(t, restrictions.Fields, 1)
	assert.Equal(t, "GeoRestriction", restrictions.Fields[0].Name)
	assert.True(t, restrictions.Fields[0].Required)
}

func TestConvertDoc_UnknownType(t *testing.T) {
	_, err := convertDoc([]docNode{
		{Name: "Weird", Type: "Float"},
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Weird")
	assert.Contains(t, err.Error(), "Float")
}

func TestConvertDoc_ObjectWithoutFields(t *testing.T) {
	_, err := convertDoc([]docNode{
		{Name: "Empty", Type: "Object"},
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no fields")
}

func TestConvertDoc_ScalarWithFields(t *testing.T) {
	_, err := convertDoc([]docNode{
		{Name: "Bad", Type: "String", Fields: []docNode{{Name: "Child", Type: "String"}}},
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot have fields")
}

func TestConvertDoc_NestedPathInError(t *testing.T) {
	_, err := convertDoc([]docNode{
		{
			Name: "Outer",
			Type: "Object",
			Fields: []docNode{
				{Name: "Inner", Type: "Mystery"},
			},
		},
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Outer.Inner")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Scalar", Scalar.String())
	assert.Equal(t, "ObjectList", ObjectList.String())
	assert.Equal(t, "Generated", Generated.String())
}
