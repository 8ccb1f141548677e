// internal/feed/payload.go
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// numericString accepts both JSON strings and JSON numbers.
type numericString string

func (n *numericString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numericString(s)
		return nil
	}
	*n = numericString(b)
	return nil
}

type listingRecord struct {
	User struct {
		ID                       string        `json:"id"`
		TotalLiquidityETH        numericString `json:"totalLiquidityETH"`
		MaxAmountToWithdrawInEth numericString `json:"maxAmountToWithdrawInEth"`
		HealthFactor             numericString `json:"healthFactor"`
	} `json:"user"`
	Reserve struct {
		Symbol string `json:"symbol"`
	} `json:"reserve"`
}

// unwrapString decodes one level of JSON string encoding, if present.
func unwrapString(b []byte) ([]byte, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return bytes.TrimSpace([]byte(s)), nil
}

// decodeListing parses `{ "data": [...] }`. The body itself and the data field may
// each arrive as a JSON-encoded string.
func decodeListing(body []byte) ([]listingRecord, error) {
	body, err := unwrapString(body)
	if err != nil {
		return nil, fmt.Errorf("decode body string: %w", err)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	data, err := unwrapString(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("decode data string: %w", err)
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("missing data field")
	}

	var records []listingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}
