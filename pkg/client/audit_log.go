package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"parkly/pkg/model"
)

type AuditLogClient struct {
	httpClient *HttpClient
}

func NewAuditLogClient(baseURL, token string) *AuditLogClient {
	return &AuditLogClient{
		httpClient: NewHttpClient(baseURL).WithToken(token),
	}
}

func (c *AuditLogClient) Search(search string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.FormatInt(offset, 10))
	return c.httpClient.GET("/api/v1/logs?" + q.Encode())
}

func (c *AuditLogClient) DecodeEntries(resp *Response) ([]model.AuditEntry, Metadata, error) {
	var page struct {
		Data       []model.AuditEntry `json:"data"`
		TotalCount int64              `json:"total_count"`
		Limit      int                `json:"limit"`
		Offset     int64              `json:"offset"`
	}
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return page.Data, Metadata{TotalCount: page.TotalCount, Limit: page.Limit, Offset: page.Offset}, nil
}
