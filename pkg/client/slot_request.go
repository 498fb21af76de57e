package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"parkly/pkg/model"
)

type SlotRequestClient struct {
	httpClient *HttpClient
}

func NewSlotRequestClient(baseURL, token string) *SlotRequestClient {
	return &SlotRequestClient{
		httpClient: NewHttpClient(baseURL).WithToken(token),
	}
}

func requestPath(id int64, action string) string {
	path := "/api/v1/slot-requests/id/" + strconv.FormatInt(id, 10)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *SlotRequestClient) Create(vehicleID int64) (*Response, error) {
	return c.httpClient.POST("/api/v1/slot-requests", model.SlotRequestCreate{VehicleID: vehicleID})
}

func (c *SlotRequestClient) GetAll(status string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.FormatInt(offset, 10))
	return c.httpClient.GET("/api/v1/slot-requests?" + q.Encode())
}

func (c *SlotRequestClient) GetByID(id int64) (*Response, error) {
	return c.httpClient.GET(requestPath(id, ""))
}

func (c *SlotRequestClient) Update(id, vehicleID int64) (*Response, error) {
	return c.httpClient.PATCH(requestPath(id, ""), model.SlotRequestUpdate{VehicleID: vehicleID})
}

func (c *SlotRequestClient) Delete(id int64) (*Response, error) {
	return c.httpClient.DELETE(requestPath(id, ""))
}

func (c *SlotRequestClient) Approve(id int64) (*Response, error) {
	return c.httpClient.POST(requestPath(id, "approve"), nil)
}

func (c *SlotRequestClient) Reject(id int64, reason string) (*Response, error) {
	return c.httpClient.POST(requestPath(id, "reject"), model.RejectInput{Reason: reason})
}

func (c *SlotRequestClient) Release(id int64) (*Response, error) {
	return c.httpClient.POST(requestPath(id, "release"), nil)
}

func (c *SlotRequestClient) DecodeSlotRequest(resp *Response) (*model.SlotRequest, error) {
	var wrapper struct {
		Data model.SlotRequest `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode slot request: %w", err)
	}
	return &wrapper.Data, nil
}

func (c *SlotRequestClient) DecodeSlotRequests(resp *Response) ([]model.SlotRequest, Metadata, error) {
	var page struct {
		Data       []model.SlotRequest `json:"data"`
		TotalCount int64               `json:"total_count"`
		Limit      int                 `json:"limit"`
		Offset     int64               `json:"offset"`
	}
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to decode slot requests: %w", err)
	}
	return page.Data, Metadata{TotalCount: page.TotalCount, Limit: page.Limit, Offset: page.Offset}, nil
}

type ApprovalBody struct {
	Message     string            `json:"message"`
	Slot        model.ParkingSlot `json:"slot"`
	Request     model.SlotRequest `json:"request"`
	EmailStatus model.EmailStatus `json:"email_status"`
}

func (c *SlotRequestClient) DecodeApproval(resp *Response) (*ApprovalBody, error) {
	var body ApprovalBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to decode approval: %w", err)
	}
	return &body, nil
}
