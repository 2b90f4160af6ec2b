package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.New().String()
}

// New returns an empty entity of the given kind.
func New(k Kind) (Entity, error) {
	switch k {
	case KindParent:
		return &Parent{}, nil
	case KindClient:
		return &Client{}, nil
	case KindContract:
		return &Contract{}, nil
	case KindPayee:
		return &Payee{}, nil
	case KindCampaign:
		return &Campaign{}, nil
	case KindRelease:
		return &Release{}, nil
	case KindTrack:
		return &Track{}, nil
	case KindWork:
		return &Work{}, nil
	case KindCost:
		return &Cost{}, nil
	}
	return nil, fmt.Errorf("unknown kind: %q", k)
}

// Encode serializes an entity to its JSON document form.
func Encode(e Entity) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("encode: nil entity")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", e.Kind(), e.EntityID(), err)
	}
	return data, nil
}

// Decode parses a JSON document into a new entity of kind k.
func Decode(k Kind, data []byte) (Entity, error) {
	e, err := New(k)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", k, err)
	}
	return e, nil
}
