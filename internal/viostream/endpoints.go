package viostream

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// Sort columns accepted by the list endpoints.
const (
	SortCreatedDate = "CreatedDate"
	SortTitle       = "Title"
	// Tag lists sort by Value or Count.
	SortTagValue = "Value"
	SortTagCount = "Count"
)

// MaxPageSize is the largest page the API serves.
const MaxPageSize = 100

// ListParams are the search/sort/paging parameters shared by the list endpoints.
// Zero fields are left out of the query.
type ListParams struct {
	SearchTerm string
	SortColumn string
	SortOrder  string
	PageSize   int
	PageNumber int
	Expand     string
}

// Values encodes p using the API's parameter names.
func (p ListParams) Values() url.Values {
	q := url.Values{}
	if p.SearchTerm != "" {
		q.Set("SearchTerm", p.SearchTerm)
	}
	if p.SortColumn != "" {
		q.Set("SortColumn", p.SortColumn)
	}
	if p.SortOrder != "" {
		q.Set("SortOrder", p.SortOrder)
	}
	if p.PageSize > 0 {
		q.Set("PageSize", strconv.Itoa(p.PageSize))
	}
	if p.PageNumber > 0 {
		q.Set("PageNumber", strconv.Itoa(p.PageNumber))
	}
	if p.Expand != "" {
		q.Set("Expand", p.Expand)
	}
	return q
}

// IngestRequest is the body of POST /media/new.
type IngestRequest struct {
	SourceURL   string `json:"sourceUrl"`
	Filename    string `json:"filename"`
	Extension   string `json:"extension"`
	ReferenceID string `json:"referenceId,omitempty"`
}

func idsQuery(key string, ids []string) url.Values {
	q := url.Values{}
	for _, id := range ids {
		q.Add(key, id)
	}
	return q
}

// AccountInfo handles GET /account/info (id, publicKey, title).
func (c *Client) AccountInfo(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/account/info", nil)
}

// ListMedia handles GET /media. The result carries a listResult object.
func (c *Client) ListMedia(ctx context.Context, p ListParams) (json.RawMessage, error) {
	return c.get(ctx, "/media", p.Values())
}

// ListMediaByIDs handles GET /media/listbyids.
func (c *Client) ListMediaByIDs(ctx context.Context, mediaIDs []string) (json.RawMessage, error) {
	return c.get(ctx, "/media/listbyids", idsQuery("mediaIds", mediaIDs))
}

// MediaDetail handles GET /media/{id}/detail. id may be a media UUID or public key.
func (c *Client) MediaDetail(ctx context.Context, mediaID, expand string) (json.RawMessage, error) {
	var q url.Values
	if expand != "" {
		q = url.Values{"Expand": {expand}}
	}
	return c.get(ctx, "/media/"+url.PathEscape(mediaID)+"/detail", q)
}

// CreateMediaIngest handles POST /media/new. The result carries ingestId.
func (c *Client) CreateMediaIngest(ctx context.Context, req IngestRequest) (json.RawMessage, error) {
	return c.post(ctx, "/media/new", req)
}

// IngestStatus handles GET /media/new/status/{ingestId}.
func (c *Client) IngestStatus(ctx context.Context, ingestID string) (json.RawMessage, error) {
	return c.get(ctx, "/media/new/status/"+url.PathEscape(ingestID), nil)
}

// ListChannels handles GET /channels.
func (c *Client) ListChannels(ctx context.Context, p ListParams) (json.RawMessage, error) {
	return c.get(ctx, "/channels", p.Values())
}

// ListChannelsByIDs handles GET /channels/listbyids.
func (c *Client) ListChannelsByIDs(ctx context.Context, channelIDs []string) (json.RawMessage, error) {
	return c.get(ctx, "/channels/listbyids", idsQuery("channelIds", channelIDs))
}

// ChannelDetail handles GET /channels/{id}/detail; p pages the media inside the channel.
func (c *Client) ChannelDetail(ctx context.Context, channelID string, p ListParams) (json.RawMessage, error) {
	return c.get(ctx, "/channels/"+url.PathEscape(channelID)+"/detail", p.Values())
}

// ListTags handles GET /tags.
func (c *Client) ListTags(ctx context.Context, p ListParams) (json.RawMessage, error) {
	return c.get(ctx, "/tags", p.Values())
}

// ListTagsWithUsage handles GET /tags/usage.
func (c *Client) ListTagsWithUsage(ctx context.Context, p ListParams) (json.RawMessage, error) {
	return c.get(ctx, "/tags/usage", p.Values())
}

// ListWhitelists handles GET /whitelist.
func (c *Client) ListWhitelists(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/whitelist", nil)
}

// WhitelistDetail handles GET /whitelist/{id}/detail.
func (c *Client) WhitelistDetail(ctx context.Context, whitelistID string) (json.RawMessage, error) {
	return c.get(ctx, "/whitelist/"+url.PathEscape(whitelistID)+"/detail", nil)
}

type createWhitelistBody struct {
	Title   string   `json:"title"`
	Domains []string `json:"domains,omitempty"`
}

// CreateWhitelist handles POST /whitelist/create (title max 50 chars).
func (c *Client) CreateWhitelist(ctx context.Context, title string, domains []string) (json.RawMessage, error) {
	return c.post(ctx, "/whitelist/create", createWhitelistBody{Title: title, Domains: domains})
}

type domainsBody struct {
	Domains []string `json:"domains"`
}

type mediaKeysBody struct {
	MediaPublicKeys []string `json:"mediaPublicKeys"`
}

// AddDomainsToWhitelist handles PUT /whitelist/{id}/adddomains.
func (c *Client) AddDomainsToWhitelist(ctx context.Context, whitelistID string, domains []string) (json.RawMessage, error) {
	return c.put(ctx, "/whitelist/"+url.PathEscape(whitelistID)+"/adddomains", domainsBody{Domains: domains})
}

// RemoveDomainsFromWhitelist handles PUT /whitelist/{id}/removedomains.
func (c *Client) RemoveDomainsFromWhitelist(ctx context.Context, whitelistID string, domains []string) (json.RawMessage, error) {
	return c.put(ctx, "/whitelist/"+url.PathEscape(whitelistID)+"/removedomains", domainsBody{Domains: domains})
}

// AddMediaToWhitelist handles PUT /whitelist/{id}/addmedia (max 10 public keys).
func (c *Client) AddMediaToWhitelist(ctx context.Context, whitelistID string, mediaPublicKeys []string) (json.RawMessage, error) {
	return c.put(ctx, "/whitelist/"+url.PathEscape(whitelistID)+"/addmedia", mediaKeysBody{MediaPublicKeys: mediaPublicKeys})
}

// RemoveMediaFromWhitelist handles PUT /whitelist/{id}/removemedia.
func (c *Client) RemoveMediaFromWhitelist(ctx context.Context, whitelistID string, mediaPublicKeys []string) (json.RawMessage, error) {
	return c.put(ctx, "/whitelist/"+url.PathEscape(whitelistID)+"/removemedia", mediaKeysBody{MediaPublicKeys: mediaPublicKeys})
}
