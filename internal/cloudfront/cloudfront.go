// Package cloudfront wraps the distribution API behind the small surface the
// lifecycle controller needs. Distribution configs travel through it as
// untyped trees (the converter's output shape); the wrapper is the only place
// that maps between those trees and the SDK's typed request structures.
package cloudfront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/smithy-go"
)

// Tag is a single resource tag.
type Tag struct {
	Key   string
	Value string
}

// Record is the provider-side view of a distribution. Status and Enabled are
// read fresh from the API on every call; the ETag is the version token a
// mutating call must present.
type Record struct {
	ID         string
	ARN        string
	DomainName string
	Status     string
	Enabled    bool
	ETag       string
}

// API is the distribution surface the lifecycle controller consumes. Every
// mutating call takes the ETag returned by the read that immediately
// preceded it.
type API interface {
	Create(ctx context.Context, config map[string]any, tags []Tag) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	GetConfig(ctx context.Context, id string) (map[string]any, string, error)
	Update(ctx context.Context, id string, config map[string]any, etag string) (Record, error)
	Delete(ctx context.Context, id, etag string) error
	Tag(ctx context.Context, arn string, tags []Tag) error
}

// Client implements API against the real CloudFront service.
type Client struct {
	api *cloudfront.Client
}

// NewClient builds a Client from the default AWS config chain.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &Client{api: cloudfront.NewFromConfig(cfg)}, nil
}

func (c *Client) Create(ctx context.Context, config map[string]any, tags []Tag) (Record, error) {
	typed, err := decodeConfig(config)
	if err != nil {
		return Record{}, err
	}

	items := make([]types.Tag, 0, len(tags))
	for _, t := range tags {
		items = append(items, types.Tag{Key: aws.String(t.Key), Value: aws.String(t.Value)})
	}

	resp, err := c.api.CreateDistributionWithTags(ctx, &cloudfront.CreateDistributionWithTagsInput{
		DistributionConfigWithTags: &types.DistributionConfigWithTags{
			DistributionConfig: typed,
			Tags:               &types.Tags{Items: items},
		},
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to create distribution: %w", err)
	}

	return record(resp.Distribution, resp.ETag), nil
}

func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	resp, err := c.api.GetDistribution(ctx, &cloudfront.GetDistributionInput{
		Id: aws.String(id),
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to get distribution %s: %w", id, err)
	}
	return record(resp.Distribution, resp.ETag), nil
}

func (c *Client) GetConfig(ctx context.Context, id string) (map[string]any, string, error) {
	resp, err := c.api.GetDistributionConfig(ctx, &cloudfront.GetDistributionConfigInput{
		Id: aws.String(id),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get distribution config %s: %w", id, err)
	}

	config, err := encodeConfig(resp.DistributionConfig)
	if err != nil {
		return nil, "", err
	}
	return config, aws.ToString(resp.ETag), nil
}

func (c *Client) Update(ctx context.Context, id string, config map[string]any, etag string) (Record, error) {
	typed, err := decodeConfig(config)
	if err != nil {
		return Record{}, err
	}

	resp, err := c.api.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(id),
		DistributionConfig: typed,
		IfMatch:            aws.String(etag),
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to update distribution %s: %w", id, err)
	}
	return record(resp.Distribution, resp.ETag), nil
}

func (c *Client) Delete(ctx context.Context, id, etag string) error {
	_, err := c.api.DeleteDistribution(ctx, &cloudfront.DeleteDistributionInput{
		Id:      aws.String(id),
		IfMatch: aws.String(etag),
	})
	if err != nil {
		return fmt.Errorf("failed to delete distribution %s: %w", id, err)
	}
	return nil
}

func (c *Client) Tag(ctx context.Context, arn string, tags []Tag) error {
	items := make([]types.Tag, 0, len(tags))
	for _, t := range tags {
		items = append(items, types.Tag{Key: aws.String(t.Key), Value: aws.String(t.Value)})
	}

	_, err := c.api.TagResource(ctx, &cloudfront.TagResourceInput{
		Resource: aws.String(arn),
		Tags:     &types.Tags{Items: items},
	})
	if err != nil {
		return fmt.Errorf("failed to tag %s: %w", arn, err)
	}
	return nil
}

// IsNotFound reports whether err means the distribution no longer exists.
func IsNotFound(err error) bool {
	var notFound *types.NoSuchDistribution
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchDistribution"
}

func record(d *types.Distribution, etag *string) Record {
	r := Record{ETag: aws.ToString(etag)}
	if d == nil {
		return r
	}
	r.ID = aws.ToString(d.Id)
	r.ARN = aws.ToString(d.ARN)
	r.DomainName = aws.ToString(d.DomainName)
	r.Status = aws.ToString(d.Status)
	if d.DistributionConfig != nil {
		r.Enabled = aws.ToBool(d.DistributionConfig.Enabled)
	}
	return r
}

// decodeConfig maps the converter's untyped tree onto the SDK's request
// struct. Field names match the API's wire names, so after reshaping the two
// flat spots a JSON round trip is sufficient.
func decodeConfig(config map[string]any) (*types.DistributionConfig, error) {
	raw, err := json.Marshal(reshapeConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to encode distribution config: %w", err)
	}
	var typed types.DistributionConfig
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, fmt.Errorf("failed to decode distribution config: %w", err)
	}
	return &typed, nil
}

// reshapeConfig bridges the two places where the flat authoring layout and
// the wire structure disagree: a behavior-level CachedMethods belongs inside
// AllowedMethods, and GeoRestriction carries Quantity and Items inline
// rather than as a wrapped list. Trees already in wire shape pass through
// untouched, so a config read back from the API can be fed in again. The
// input is never mutated.
func reshapeConfig(config map[string]any) map[string]any {
	out := copyMap(config)

	if behavior, ok := out["DefaultCacheBehavior"].(map[string]any); ok {
		out["DefaultCacheBehavior"] = nestCachedMethods(behavior)
	}
	if wrapped, ok := out["CacheBehaviors"].(map[string]any); ok {
		if items, ok := wrapped["Items"].([]any); ok {
			reshaped := make([]any, len(items))
			for i, item := range items {
				if behavior, ok := item.(map[string]any); ok {
					reshaped[i] = nestCachedMethods(behavior)
				} else {
					reshaped[i] = item
				}
			}
			w := copyMap(wrapped)
			w["Items"] = reshaped
			out["CacheBehaviors"] = w
		}
	}
	if restrictions, ok := out["Restrictions"].(map[string]any); ok {
		out["Restrictions"] = flattenGeoRestriction(restrictions)
	}
	return out
}

func nestCachedMethods(behavior map[string]any) map[string]any {
	cached, ok := behavior["CachedMethods"]
	if !ok {
		return behavior
	}
	out := copyMap(behavior)
	delete(out, "CachedMethods")
	allowed, _ := out["AllowedMethods"].(map[string]any)
	merged := copyMap(allowed)
	merged["CachedMethods"] = cached
	out["AllowedMethods"] = merged
	return out
}

func flattenGeoRestriction(restrictions map[string]any) map[string]any {
	geo, ok := restrictions["GeoRestriction"].(map[string]any)
	if !ok {
		return restrictions
	}
	flat := copyMap(geo)
	if wrapped, ok := geo["Items"].(map[string]any); ok {
		flat["Quantity"] = wrapped["Quantity"]
		flat["Items"] = wrapped["Items"]
	} else if _, present := flat["Quantity"]; !present {
		// RestrictionType "none" carries no locations; the API still
		// demands an explicit zero.
		flat["Quantity"] = 0
	}
	out := copyMap(restrictions)
	out["GeoRestriction"] = flat
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func encodeConfig(config *types.DistributionConfig) (map[string]any, error) {
	raw, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode distribution config: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode distribution config: %w", err)
	}
	return tree, nil
}
