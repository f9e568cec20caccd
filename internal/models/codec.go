package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// LineItems is stored as a JSONB array. Values are written as strings so the
// driver sends text rather than bytea. Rows written before the array
// format wrap the items as {"products": [...]}; Scan accepts both shapes
// and Value always writes the array.
type LineItems []LineItem

func (li LineItems) Value() (driver.Value, error) {
	if li == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]LineItem(li))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (li *LineItems) Scan(src interface{}) error {
	data, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scan line items: %w", err)
	}

	items, _, err := DecodeLineItems(data)
	if err != nil {
		return err
	}
	*li = items
	return nil
}

type legacyLineItems struct {
	Products []LineItem `json:"products"`
}

// DecodeLineItems parses either stored shape. legacy is true when the input
// used the {"products": [...]} wrapper.
func DecodeLineItems(data []byte) (items LineItems, legacy bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return LineItems{}, false, nil
	}

	switch trimmed[0] {
	case '[':
		var list []LineItem
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, false, fmt.Errorf("decode line items: %w", err)
		}
		return LineItems(list), false, nil
	case '{':
		var wrapped legacyLineItems
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, true, fmt.Errorf("decode legacy line items: %w", err)
		}
		if wrapped.Products == nil {
			wrapped.Products = []LineItem{}
		}
		return LineItems(wrapped.Products), true, nil
	default:
		return nil, false, errors.New("decode line items: unexpected json shape")
	}
}

// StockBySize maps a size label to units on hand.
type StockBySize map[string]int

func (s StockBySize) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]int(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StockBySize) Scan(src interface{}) error {
	data, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scan stock by size: %w", err)
	}

	stock := StockBySize{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &stock); err != nil {
			return fmt.Errorf("decode stock by size: %w", err)
		}
	}
	*s = stock
	return nil
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}
