package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	"parkly/pkg/model"
)

type ParkingSlotClient struct {
	httpClient *HttpClient
}

func NewParkingSlotClient(baseURL, token string) *ParkingSlotClient {
	return &ParkingSlotClient{
		httpClient: NewHttpClient(baseURL).WithToken(token),
	}
}

func slotPath(id int64) string {
	return "/api/v1/parking-slots/id/" + strconv.FormatInt(id, 10)
}

func (c *ParkingSlotClient) BulkCreate(slots []model.ParkingSlotInput) (*Response, error) {
	return c.httpClient.POST("/api/v1/parking-slots/bulk", model.ParkingSlotBulkCreate{Slots: slots})
}

func (c *ParkingSlotClient) GetAll(limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(fmt.Sprintf("/api/v1/parking-slots?limit=%d&offset=%d", limit, offset))
}

func (c *ParkingSlotClient) GetByID(id int64) (*Response, error) {
	return c.httpClient.GET(slotPath(id))
}

func (c *ParkingSlotClient) Update(id int64, update model.ParkingSlotUpdate) (*Response, error) {
	return c.httpClient.PATCH(slotPath(id), update)
}

func (c *ParkingSlotClient) Delete(id int64) (*Response, error) {
	return c.httpClient.DELETE(slotPath(id))
}

func (c *ParkingSlotClient) DecodeSlots(resp *Response) ([]model.ParkingSlot, error) {
	var wrapper struct {
		Data []model.ParkingSlot `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode parking slots: %w", err)
	}
	return wrapper.Data, nil
}

func (c *ParkingSlotClient) DecodeSlot(resp *Response) (*model.ParkingSlot, error) {
	var wrapper struct {
		Data model.ParkingSlot `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode parking slot: %w", err)
	}
	return &wrapper.Data, nil
}
