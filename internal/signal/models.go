package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Signal is one immutable handshake message relayed between the two call
// participants. Never updated or deleted here; retention is external.
//
// Seq is assigned by the store at append time and is the ordering key for
// delivery. CreatedAt stays the wire-visible cursor for the poll `since`
// parameter; both advance together.
type Signal struct {
	ID         string          `json:"id" db:"id"`
	CallID     string          `json:"call_id" db:"call_id"`
	Seq        int64           `json:"seq" db:"seq"`
	FromUserID string          `json:"from_user_id" db:"from_user_id"`
	ToUserID   string          `json:"to_user_id" db:"to_user_id"`
	Type       Type            `json:"signal_type" db:"signal_type"`
	Data       json.RawMessage `json:"signal_data" db:"signal_data"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type Type string

const (
	TypeOffer        Type = "offer"
	TypeAnswer       Type = "answer"
	TypeIceCandidate Type = "ice-candidate"
)

func (t Type) Valid() bool {
	switch t {
	case TypeOffer, TypeAnswer, TypeIceCandidate:
		return true
	default:
		return false
	}
}

// Payload is the decoded form of signal_data. The wire shape stays an opaque
// JSON blob; decoding exists so sends with a structurally broken payload fail
// fast instead of wedging the peer's handshake.
type Payload interface{ isPayload() }

type Offer struct {
	SDP string `json:"sdp"`
}

type Answer struct {
	SDP string `json:"sdp"`
}

type IceCandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *int    `json:"sdpMLineIndex,omitempty"`
}

func (Offer) isPayload()        {}
func (Answer) isPayload()       {}
func (IceCandidate) isPayload() {}

var ErrInvalidPayload = errors.New("signal: invalid payload")

// ParsePayload validates raw against the tagged variant for t.
func ParsePayload(t Type, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidPayload
	}
	switch t {
	case TypeOffer:
		var p Offer
		if err := json.Unmarshal(raw, &p); err != nil || p.SDP == "" {
			return nil, fmt.Errorf("%w: offer requires sdp", ErrInvalidPayload)
		}
		return p, nil
	case TypeAnswer:
		var p Answer
		if err := json.Unmarshal(raw, &p); err != nil || p.SDP == "" {
			return nil, fmt.Errorf("%w: answer requires sdp", ErrInvalidPayload)
		}
		return p, nil
	case TypeIceCandidate:
		var p IceCandidate
		if err := json.Unmarshal(raw, &p); err != nil || p.Candidate == "" {
			return nil, fmt.Errorf("%w: ice-candidate requires candidate", ErrInvalidPayload)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPayload, t)
	}
}
