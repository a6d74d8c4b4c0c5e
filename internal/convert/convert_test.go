package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rererecursive/hl-component-cloudfront/internal/schema"
)

func stubToken(t *testing.T, value string) {
	t.Helper()
	prev := newToken
	newToken = func() string { return value }
	t.Cleanup(func() { newToken = prev })
}

func TestApplyAliases(t *testing.T) {
	props := map[string]any{
		"DistributionConfig": map[string]any{
			"IPV6Enabled": true,
			"Comment":     "site",
		},
		"Tags": []any{},
	}

	got := ApplyAliases(props)

	config := got["DistributionConfig"].(map[string]any)
	assert.Equal(t, true, config["IsIPV6Enabled"])
	assert.NotContains(t, config, "IPV6Enabled")
	assert.Equal(t, "site", config["Comment"])

	// Input untouched.
	original := props["DistributionConfig"].(map[string]any)
	assert.Contains(t, original, "IPV6Enabled")
}

func TestApplyAliases_NoDistributionConfig(t *testing.T) {
	props := map[string]any{"Other": 1}
	assert.Equal(t, props, ApplyAliases(props))
}

func TestConvert_ScalarAndGenerated(t *testing.T) {
	stubToken(t, "token-1")

	nodes := []schema.Node{
		{Name: "CallerReference", Kind: schema.Generated, Required: true},
		{Name: "Enabled", Kind: schema.Scalar, Required: true},
		{Name: "Comment", Kind: schema.Scalar, Required: true},
	}

	got, err := Convert(nodes, map[string]any{
		"Enabled": true,
		"Comment": "site",
		// A provided value for a generated field is ignored.
		"CallerReference": "user-supplied",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"CallerReference": "token-1",
		"Enabled":         true,
		"Comment":         "site",
	}, got)
}

func TestConvert_OptionalGeneratedAbsentIsOmitted(t *testing.T) {
	stubToken(t, "token-9")

	nodes := []schema.Node{
		{Name: "CallerReference", Kind: schema.Generated},
		{Name: "Comment", Kind: schema.Scalar, Required: true},
	}

	got, err := Convert(nodes, map[string]any{"Comment": "site"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Comment": "site"}, got)

	// A provided value still triggers synthesis rather than being copied.
	got, err = Convert(nodes, map[string]any{"Comment": "site", "CallerReference": "user"})
	require.NoError(t, err)
	assert.Equal(t, "token-9", got["CallerReference"])
}

func TestConvert_OptionalAbsentIsOmitted(t *testing.T) {
	nodes := []schema.Node{
		{Name: "PriceClass", Kind: schema.Scalar},
		{Name: "Aliases", Kind: schema.ScalarList},
	}

	got, err := Convert(nodes, map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConvert_MissingRequiredField(t *testing.T) {
	nodes := []schema.Node{
		{Name: "Enabled", Kind: schema.Scalar, Required: true},
	}

	_, err := Convert(nodes, map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequired)
	assert.Contains(t, err.Error(), "Enabled")
}

func TestConvert_MissingRequiredNestedFieldNamesPath(t *testing.T) {
	nodes := []schema.Node{
		{
			Name: "Logging", Kind: schema.Object, Required: true,
			Fields: []schema.Node{
				{Name: "Bucket", Kind: schema.Scalar, Required: true},
			},
		},
	}

	_, err := Convert(nodes, map[string]any{
		"Logging": map[string]any{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequired)
	assert.Contains(t, err.Error(), "Logging.Bucket")
}

func TestConvert_ScalarListCountDerivedFromItems(t *testing.T) {
	nodes := []schema.Node{
		{Name: "Aliases", Kind: schema.ScalarList},
	}

	got, err := Convert(nodes, map[string]any{
		"Aliases": []any{"a.example.com", "b.example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"Aliases": map[string]any{
			"Quantity": 2,
			"Items":    []any{"a.example.com", "b.example.com"},
		},
	}, got)
}

func TestConvert_ObjectList(t *testing.T) {
	nodes := []schema.Node{
		{
			Name: "Origins", Kind: schema.ObjectList, Required: true,
			Fields: []schema.Node{
				{Name: "Id", Kind: schema.Scalar, Required: true},
				{Name: "DomainName", Kind: schema.Scalar, Required: true},
				{Name: "OriginPath", Kind: schema.Scalar},
			},
		},
	}

	got, err := Convert(nodes, map[string]any{
		"Origins": []any{
			map[string]any{"Id": "one", "DomainName": "one.example.com"},
			map[string]any{"Id": "two", "DomainName": "two.example.com", "OriginPath": "/static"},
		},
	})
	require.NoError(t, err)

	origins := got["Origins"].(map[string]any)
	assert.Equal(t, 2, origins["Quantity"])

	items := origins["Items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, map[string]any{"Id": "one", "DomainName": "one.example.com"}, items[0])
	assert.Equal(t, map[string]any{"Id": "two", "DomainName": "two.example.com", "OriginPath": "/static"}, items[1])
}

func TestConvert_ObjectListElementError(t *testing.T) {
	nodes := []schema.Node{
		{
			Name: "Origins", Kind: schema.ObjectList, Required: true,
			Fields: []schema.Node{
				{Name: "Id", Kind: schema.Scalar, Required: true},
			},
		},
	}

	_, err := Convert(nodes, map[string]any{
		"Origins": []any{
			map[string]any{"Id": "one"},
			map[string]any{},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Origins[1].Id")
}

func TestConvert_NeverEmitsUndescribedFields(t *testing.T) {
	nodes := []schema.Node{
		{Name: "Comment", Kind: schema.Scalar, Required: true},
	}

	got, err := Convert(nodes, map[string]any{
		"Comment":    "site",
		"Surprise":   "value",
		"AlsoExtras": []any{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Comment": "site"}, got)
}

func TestConvert_TypeMismatch(t *testing.T) {
	nodes := []schema.Node{
		{Name: "Aliases", Kind: schema.ScalarList},
	}

	_, err := Convert(nodes, map[string]any{
		"Aliases": "not-a-list",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a list")
}

// End-to-end over the embedded schema: the example from the handler's
// contract, IPV6Enabled arriving stringified and aliased into the converted
// structure.
func TestConvert_EmbeddedSchemaWithAlias(t *testing.T) {
	stubToken(t, "token-2")

	nodes, err := schema.Load()
	require.NoError(t, err)

	props := ApplyAliases(map[string]any{
		"DistributionConfig": map[string]any{
			"Comment":     "static site",
			"Enabled":     true,
			"IPV6Enabled": true,
			"Origins": []any{
				map[string]any{
					"Id":         "s3-origin",
					"DomainName": "bucket.s3.amazonaws.com",
					"S3OriginConfig": map[string]any{
						"OriginAccessIdentity": "",
					},
				},
			},
			"DefaultCacheBehavior": map[string]any{
				"TargetOriginId":       "s3-origin",
				"ViewerProtocolPolicy": "redirect-to-https",
				"AllowedMethods":       []any{"GET", "HEAD"},
			},
		},
	})

	got, err := Convert(nodes, props)
	require.NoError(t, err)

	config := got["DistributionConfig"].(map[string]any)
	assert.Equal(t, true, config["IsIPV6Enabled"])
	assert.Equal(t, "token-2", config["CallerReference"])

	origins := config["Origins"].(map[string]any)
	assert.Equal(t, 1, origins["Quantity"])

	behavior := config["DefaultCacheBehavior"].(map[string]any)
	methods := behavior["AllowedMethods"].(map[string]any)
	assert.Equal(t, 2, methods["Quantity"])
	assert.Equal(t, []any{"GET", "HEAD"}, methods["Items"])
}
