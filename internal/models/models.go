package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// CartItem is one line entry of the cart as delivered by the remote source.
// Price is in minor currency units.
type CartItem struct {
	ID       ItemID `json:"id"`
	Title    string `json:"title"`
	Image    string `json:"image"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// CartPayload is the body returned by the cart source.
type CartPayload struct {
	Items *[]CartItem `json:"items"`
}

// ItemID accepts both numeric and string identifiers.
type ItemID string

func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("item id must be a string or a number")
	}
	*id = ItemID(n.String())
	return nil
}

func (id ItemID) String() string {
	return string(id)
}

// Line is a cart item together with its computed subtotal.
type Line struct {
	Item     CartItem
	Subtotal int64
}

// LineResponse is the JSON shape of a single line.
type LineResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Image        string `json:"image"`
	Price        int64  `json:"price"`
	Quantity     int    `json:"quantity"`
	Subtotal     int64  `json:"subtotal"`
	PriceText    string `json:"price_text"`
	SubtotalText string `json:"subtotal_text"`
}

// CartResponse is the JSON shape of a cart page.
type CartResponse struct {
	PageID       string         `json:"page_id"`
	Status       string         `json:"status"`
	Items        []LineResponse `json:"items"`
	Subtotal     int64          `json:"subtotal"`
	Total        int64          `json:"total"`
	SubtotalText string         `json:"subtotal_text"`
	TotalText    string         `json:"total_text"`
}

// QuantityRequest is the body of a quantity update.
type QuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// CheckoutResponse acknowledges a checkout request.
type CheckoutResponse struct {
	Message string `json:"message"`
}
