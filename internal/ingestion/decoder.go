package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"token-risk-monitor/internal/domain"
)

// Batch is a decoded inbound payload.
type Batch struct {
	Snapshots []*domain.TokenSnapshot
	Skipped   []ItemError
	Size      int // number of records in the batch array
}

// batchKeys are the top-level keys that may carry the batch, in priority order.
var batchKeys = []string{"tokens", "data"}

var validate = validator.New()

// wireToken is the inbound record shape. Pointers distinguish absent from empty.
type wireToken struct {
	ID         *string         `json:"id"`
	Kind       *string         `json:"type"`
	Attributes *wireAttributes `json:"attributes"`
}

// wireAttributes accepts the camelCase aliases some feeds use.
type wireAttributes struct {
	domain.TokenAttributes
	TokenAddressAlias *string `json:"tokenAddress"`
	ImgURLAlias       *string `json:"imgUrl"`
	FromPumpAlias     *bool   `json:"fromPump"`
	FromMoonshotAlias *bool   `json:"fromMoonshot"`
}

func (w *wireAttributes) resolve() domain.TokenAttributes {
	attrs := w.TokenAttributes
	if attrs.TokenAddress == nil {
		attrs.TokenAddress = w.TokenAddressAlias
	}
	if attrs.ImgURL == nil {
		attrs.ImgURL = w.ImgURLAlias
	}
	if attrs.FromPump == nil {
		attrs.FromPump = w.FromPumpAlias
	}
	if attrs.FromMoonshot == nil {
		attrs.FromMoonshot = w.FromMoonshotAlias
	}
	return attrs
}

// DecodeBatch decodes an inbound payload into snapshots.
//
// The payload must be a JSON object carrying the batch under "tokens", "data"
// or "message.discover.data". A payload with none of these keys (or a null
// batch) is a non-token frame and yields an empty batch. Records are decoded
// independently; failures are collected in Skipped and never abort the batch.
func DecodeBatch(payload []byte) (*Batch, error) {
	if !json.Valid(payload) {
		return nil, ErrMalformedMessage
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrBatchShape)
	}

	raw, key := findBatch(top)
	if raw == nil || isNull(raw) {
		return &Batch{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBatchShape, key)
	}

	batch := &Batch{
		Snapshots: make([]*domain.TokenSnapshot, 0, len(items)),
		Size:      len(items),
	}
	for i, item := range items {
		snap, id, err := decodeItem(item)
		if err != nil {
			batch.Skipped = append(batch.Skipped, ItemError{Index: i, ID: id, Err: err})
			continue
		}
		batch.Snapshots = append(batch.Snapshots, snap)
	}
	return batch, nil
}

// findBatch returns the raw batch value and the key path it was found under.
func findBatch(top map[string]json.RawMessage) (json.RawMessage, string) {
	for _, key := range batchKeys {
		if raw, ok := top[key]; ok {
			return raw, key
		}
	}

	// Upstream discovery feed nests the batch: {"message":{"discover":{"data":[...]}}}
	var message struct {
		Discover *struct {
			Data json.RawMessage `json:"data"`
		} `json:"discover"`
	}
	if raw, ok := top["message"]; ok && json.Unmarshal(raw, &message) == nil &&
		message.Discover != nil && message.Discover.Data != nil {
		return message.Discover.Data, "message.discover.data"
	}
	return nil, ""
}

// decodeItem decodes and validates one record. The returned id is best-effort
// and set even when decoding fails, for error reporting.
func decodeItem(raw json.RawMessage) (*domain.TokenSnapshot, string, error) {
	var w wireToken
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, peekID(raw), fmt.Errorf("%w: %v", ErrItemDecode, err)
	}

	id := ""
	if w.ID != nil {
		id = *w.ID
	}

	var missing []string
	if w.ID == nil || *w.ID == "" {
		missing = append(missing, "id")
	}
	if w.Kind == nil {
		missing = append(missing, "type")
	}
	if w.Attributes == nil {
		missing = append(missing, "attributes")
	}
	if len(missing) > 0 {
		return nil, id, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	snap := &domain.TokenSnapshot{
		ID:         id,
		Kind:       *w.Kind,
		Attributes: w.Attributes.resolve(),
	}

	if err := validate.Struct(snap); err != nil {
		return nil, id, fmt.Errorf("%w: %s", ErrInvalidItem, describeValidation(err))
	}
	return snap, id, nil
}

// peekID extracts a string id from a record that failed full decoding.
func peekID(raw json.RawMessage) string {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(raw, &head) != nil || head.ID == nil {
		return ""
	}
	var id string
	if json.Unmarshal(head.ID, &id) != nil {
		return ""
	}
	return id
}

func describeValidation(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		if fe.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			messages = append(messages, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
