package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type FailureKind string

const (
	KindDecode    FailureKind = "decode_failure"
	KindInference FailureKind = "inference_failure"
	KindEncode    FailureKind = "encode_failure"
	KindTimeout   FailureKind = "timeout"
)

// ItemError - ошибка обработки одного файла, дальше BatchRunner не уходит
type ItemError struct {
	Kind   FailureKind `json:"kind"`
	Item   string      `json:"item"`
	Detail string      `json:"detail,omitempty"`
}

func (e *ItemError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Item)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Item, e.Detail)
}

// FailureReport - упавшие файлы батча в порядке обработки
type FailureReport []ItemError

func (r FailureReport) Len() int {
	return len(r)
}

// Map - filename -> причина; при одинаковых именах остается последняя
func (r FailureReport) Map() map[string]string {
	res := make(map[string]string, len(r))
	for _, v := range r {
		reason := string(v.Kind)
		if v.Detail != "" {
			reason += ": " + v.Detail
		}
		res[v.Item] = reason
	}
	return res
}

func (r *FailureReport) Scan(value any) error {
	if value == nil {
		*r = FailureReport{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for FailureReport")
	}

	if err := json.Unmarshal(b, r); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to FailureReport: %w", err)
	}
	return nil
}

func (r FailureReport) Value() (driver.Value, error) {
	if len(r) == 0 {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal FailureReport to JSONB: %w", err)
	}

	return res, nil
}
