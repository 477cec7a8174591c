package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/sunsong/certbot-dns-alicloud/internal/credentials"
	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
)

// AwsRoute53Name is the registry name of the Route53 provider.
const AwsRoute53Name = "aws_route53"

func init() {
	RegisterFactory(AwsRoute53Name, func(ctx context.Context, _ *credentials.Credentials) (Provider, error) {
		// Route53 authenticates through the AWS SDK default chain, not the
		// INI credentials file.
		return NewAwsRoute53Client(ctx)
	})
}

// Route53API defines the interface for the AWS Route53 API, enabling mocking.
type Route53API interface {
	ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error)
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// AwsRoute53Client manages TXT records through the AWS Route53 API.
type AwsRoute53Client struct {
	client    Route53API
	zoneCache map[string]string // record name -> hostedZoneId cache
}

// NewAwsRoute53Client creates a new Route53 client
func NewAwsRoute53Client(ctx context.Context) (*AwsRoute53Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &AwsRoute53Client{
		client:    route53.NewFromConfig(cfg),
		zoneCache: make(map[string]string),
	}, nil
}

// NewAwsRoute53ClientWithMock creates a new Route53 client with a mock API for testing
func NewAwsRoute53ClientWithMock(mock Route53API) *AwsRoute53Client {
	return &AwsRoute53Client{
		client:    mock,
		zoneCache: make(map[string]string),
	}
}

// Name returns the provider name
func (c *AwsRoute53Client) Name() string {
	return AwsRoute53Name
}

// CreateRecord adds value to the TXT record set at fqdn. Route53 stores all
// values of a name/type pair in a single record set and UPSERT replaces the
// whole set, so the existing values are fetched and the new one is merged in.
// Multiple challenges at the same name (apex plus wildcard) stay intact.
func (c *AwsRoute53Client) CreateRecord(ctx context.Context, fqdn, value string, ttl int) error {
	zoneID, err := c.findHostedZoneID(ctx, fqdn)
	if err != nil {
		return &APIError{Provider: AwsRoute53Name, Op: "resolve hosted zone", Err: err}
	}

	name := c.ensureTrailingDot(fqdn)

	existing, err := c.lookupTXTRecordSet(ctx, zoneID, name)
	if err != nil {
		return &APIError{Provider: AwsRoute53Name, Op: "find TXT record", Err: err}
	}

	// Route53 requires TXT values to be quoted.
	quoted := strconv.Quote(value)

	var records []types.ResourceRecord
	if existing != nil {
		records = existing.ResourceRecords
	}
	if !containsRecordValue(records, quoted) {
		records = append(records, types.ResourceRecord{Value: aws.String(quoted)})
	}

	logger.Debug("Upserting TXT record: zone=%s, name=%s, ttl=%d, values=%d", zoneID, name, ttl, len(records))

	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action: types.ChangeActionUpsert,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            aws.String(name),
					Type:            types.RRTypeTxt,
					TTL:             aws.Int64(int64(ttl)),
					ResourceRecords: records,
				},
			}},
		},
	}

	if _, err := c.client.ChangeResourceRecordSets(ctx, input); err != nil {
		return &APIError{Provider: AwsRoute53Name, Op: "upsert TXT record", Err: err}
	}

	return nil
}

// DeleteRecord removes value from the TXT record set at fqdn. The set is
// only deleted outright when value was its last entry; otherwise the
// remaining values are written back so other live challenges survive the
// cleanup. A value that no longer exists is not an error.
func (c *AwsRoute53Client) DeleteRecord(ctx context.Context, fqdn, value string) error {
	zoneID, err := c.findHostedZoneID(ctx, fqdn)
	if err != nil {
		logger.Debug("Skipping cleanup, could not resolve hosted zone for %s: %v", fqdn, err)
		return nil
	}

	name := c.ensureTrailingDot(fqdn)

	existing, err := c.lookupTXTRecordSet(ctx, zoneID, name)
	if err != nil {
		return &APIError{Provider: AwsRoute53Name, Op: "find TXT record", Err: err}
	}
	if existing == nil {
		logger.Debug("TXT record not found for %s; no cleanup needed", fqdn)
		return nil
	}

	quoted := strconv.Quote(value)
	remaining := make([]types.ResourceRecord, 0, len(existing.ResourceRecords))
	for _, record := range existing.ResourceRecords {
		if aws.ToString(record.Value) != quoted {
			remaining = append(remaining, record)
		}
	}
	if len(remaining) == len(existing.ResourceRecords) {
		logger.Debug("TXT value not found for %s; no cleanup needed", fqdn)
		return nil
	}

	change := types.Change{
		Action:            types.ChangeActionDelete,
		ResourceRecordSet: existing,
	}
	if len(remaining) > 0 {
		updated := *existing
		updated.ResourceRecords = remaining
		change = types.Change{
			Action:            types.ChangeActionUpsert,
			ResourceRecordSet: &updated,
		}
	}

	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch:  &types.ChangeBatch{Changes: []types.Change{change}},
	}

	if _, err := c.client.ChangeResourceRecordSets(ctx, input); err != nil {
		return &APIError{Provider: AwsRoute53Name, Op: "delete TXT record", Err: err}
	}

	return nil
}

// Close cleans up resources (no-op for Route53)
func (c *AwsRoute53Client) Close(ctx context.Context) error {
	return nil
}

// findHostedZoneID picks the hosted zone with the longest name that is a
// suffix of the record FQDN, so _acme-challenge.sub.example.com lands in the
// sub.example.com zone when one exists and example.com otherwise.
func (c *AwsRoute53Client) findHostedZoneID(ctx context.Context, fqdn string) (string, error) {
	name := c.ensureTrailingDot(fqdn)

	if zoneID, exists := c.zoneCache[name]; exists {
		return zoneID, nil
	}

	var bestID, bestName string

	var marker *string
	for {
		output, err := c.client.ListHostedZones(ctx, &route53.ListHostedZonesInput{Marker: marker})
		if err != nil {
			return "", fmt.Errorf("list hosted zones: %w", err)
		}

		for _, zone := range output.HostedZones {
			zoneName := aws.ToString(zone.Name)
			if name != zoneName && !strings.HasSuffix(name, "."+zoneName) {
				continue
			}
			if len(zoneName) > len(bestName) {
				bestName = zoneName
				bestID = strings.TrimPrefix(aws.ToString(zone.Id), "/hostedzone/")
			}
		}

		if !output.IsTruncated {
			break
		}
		marker = output.NextMarker
	}

	if bestID == "" {
		return "", fmt.Errorf("no hosted zone found for %s", fqdn)
	}

	c.zoneCache[name] = bestID
	return bestID, nil
}

// lookupTXTRecordSet returns the TXT record set at name, or nil when the
// name has no TXT records.
func (c *AwsRoute53Client) lookupTXTRecordSet(ctx context.Context, zoneID, name string) (*types.ResourceRecordSet, error) {
	input := &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(name),
		StartRecordType: types.RRTypeTxt,
		MaxItems:        aws.Int32(1),
	}

	result, err := c.client.ListResourceRecordSets(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list record sets: %w", err)
	}

	if len(result.ResourceRecordSets) == 0 {
		return nil, nil
	}

	recordSet := result.ResourceRecordSets[0]
	if aws.ToString(recordSet.Name) != name || recordSet.Type != types.RRTypeTxt {
		return nil, nil
	}

	return &recordSet, nil
}

func containsRecordValue(records []types.ResourceRecord, value string) bool {
	for _, record := range records {
		if aws.ToString(record.Value) == value {
			return true
		}
	}
	return false
}

// ensureTrailingDot ensures the name ends with a dot as Route53 expects
func (c *AwsRoute53Client) ensureTrailingDot(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}
