package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/alidns"

	"github.com/sunsong/certbot-dns-alicloud/internal/credentials"
	"github.com/sunsong/certbot-dns-alicloud/internal/logger"
	"github.com/sunsong/certbot-dns-alicloud/internal/util"
)

// AliDNSName is the registry name of the AliCloud DNS provider.
const AliDNSName = "alidns"

// AliCloud DNS only accepts TTLs in this range.
const (
	MinAliDNSTTL = 600
	MaxAliDNSTTL = 86400
)

func init() {
	RegisterFactory(AliDNSName, func(ctx context.Context, creds *credentials.Credentials) (Provider, error) {
		if creds == nil {
			return nil, fmt.Errorf("alidns: credentials are required")
		}
		return NewAliDNSClient(creds)
	})
}

// AliDNSAPI is the subset of the AliCloud DNS API the client uses, extracted
// as an interface to enable mocking.
type AliDNSAPI interface {
	AddDomainRecord(request *alidns.AddDomainRecordRequest) (*alidns.AddDomainRecordResponse, error)
	DeleteDomainRecord(request *alidns.DeleteDomainRecordRequest) (*alidns.DeleteDomainRecordResponse, error)
	DescribeDomainRecords(request *alidns.DescribeDomainRecordsRequest) (*alidns.DescribeDomainRecordsResponse, error)
}

// AliDNSClient manages TXT records through the AliCloud DNS API.
type AliDNSClient struct {
	api       AliDNSAPI
	zoneCache map[string]string // record name -> registered zone cache
}

// NewAliDNSClient creates a new AliCloud DNS client from INI credentials.
func NewAliDNSClient(creds *credentials.Credentials) (*AliDNSClient, error) {
	api, err := alidns.NewClientWithAccessKey(creds.Region, creds.AccessKey, creds.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("create alidns client: %w", err)
	}

	logger.Debug("AliCloud DNS client ready: region=%s, access key=%s",
		creds.Region, util.MaskValue(creds.AccessKey))

	return &AliDNSClient{
		api:       api,
		zoneCache: make(map[string]string),
	}, nil
}

// NewAliDNSClientWithMock creates a new AliCloud DNS client with a mock API for testing.
func NewAliDNSClientWithMock(mock AliDNSAPI) *AliDNSClient {
	return &AliDNSClient{
		api:       mock,
		zoneCache: make(map[string]string),
	}
}

// Name returns the provider name
func (c *AliDNSClient) Name() string {
	return AliDNSName
}

// CreateRecord adds a TXT record for fqdn with the given value and TTL.
func (c *AliDNSClient) CreateRecord(ctx context.Context, fqdn, value string, ttl int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	zone, rr, err := c.zoneAndRR(fqdn)
	if err != nil {
		return &APIError{Provider: AliDNSName, Op: "resolve zone", Err: err}
	}

	request := alidns.CreateAddDomainRecordRequest()
	request.DomainName = zone
	request.RR = rr
	request.Type = "TXT"
	request.Value = value
	request.TTL = requests.NewInteger(ttl)

	logger.Debug("Adding TXT record: zone=%s, rr=%s, ttl=%d", zone, rr, ttl)

	if _, err := c.api.AddDomainRecord(request); err != nil {
		return &APIError{Provider: AliDNSName, Op: "add TXT record", Err: err}
	}

	logger.Debug("Successfully added TXT record for %s", fqdn)
	return nil
}

// DeleteRecord removes the TXT record for fqdn with the given value.
// A record that no longer exists is not an error; an unresolvable zone during
// cleanup is logged and skipped so a failed create never blocks cleanup.
func (c *AliDNSClient) DeleteRecord(ctx context.Context, fqdn, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	zone, rr, err := c.zoneAndRR(fqdn)
	if err != nil {
		logger.Debug("Skipping cleanup, could not resolve zone for %s: %v", fqdn, err)
		return nil
	}

	recordID, err := c.findRecordID(zone, rr, value)
	if err != nil {
		return &APIError{Provider: AliDNSName, Op: "find TXT record", Err: err}
	}

	if recordID == "" {
		logger.Debug("TXT record not found for %s; no cleanup needed", fqdn)
		return nil
	}

	request := alidns.CreateDeleteDomainRecordRequest()
	request.RecordId = recordID

	if _, err := c.api.DeleteDomainRecord(request); err != nil {
		return &APIError{Provider: AliDNSName, Op: "delete TXT record", Err: err}
	}

	logger.Debug("Successfully deleted TXT record for %s", fqdn)
	return nil
}

// Close cleans up resources (no-op for AliCloud DNS)
func (c *AliDNSClient) Close(ctx context.Context) error {
	return nil
}

// zoneAndRR splits a record FQDN into the registered zone and the RR part.
// The zone is found by probing progressively shorter suffixes of the record
// name against the API, since only the account's registered domains answer.
// Verified zones are cached per record name.
func (c *AliDNSClient) zoneAndRR(fqdn string) (string, string, error) {
	name := strings.TrimSuffix(fqdn, ".")

	if zone, exists := c.zoneCache[name]; exists {
		return zone, rrForZone(name, zone), nil
	}

	labels := strings.Split(name, ".")
	for i := range labels {
		zone := strings.Join(labels[i:], ".")

		request := alidns.CreateDescribeDomainRecordsRequest()
		request.DomainName = zone
		request.PageSize = requests.NewInteger(1)

		if _, err := c.api.DescribeDomainRecords(request); err != nil {
			// Not a registered zone in this account, try the next suffix.
			continue
		}

		c.zoneCache[name] = zone
		return zone, rrForZone(name, zone), nil
	}

	return "", "", fmt.Errorf("unable to determine registered zone for %s", fqdn)
}

// rrForZone derives the RR portion of a record name within a zone.
// The apex record is "@"; wildcard labels are kept verbatim.
func rrForZone(name, zone string) string {
	if name == zone {
		return "@"
	}
	return strings.TrimSuffix(name, "."+zone)
}

// findRecordID looks up the record id of the TXT record matching rr and value.
// Returns an empty id when no record matches.
func (c *AliDNSClient) findRecordID(zone, rr, value string) (string, error) {
	request := alidns.CreateDescribeDomainRecordsRequest()
	request.DomainName = zone
	request.RRKeyWord = rr
	request.TypeKeyWord = "TXT"
	request.ValueKeyWord = value

	response, err := c.api.DescribeDomainRecords(request)
	if err != nil {
		return "", err
	}

	for _, record := range response.DomainRecords.Record {
		if record.RR == rr && record.Value == value {
			return record.RecordId, nil
		}
	}

	return "", nil
}
