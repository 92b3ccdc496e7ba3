package amqp

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"scoreboard/internal/core"
)

// KidRollover is one kid's line of a rollover notice. Amounts are fixed
// two-decimal strings so consumers never see binary floats.
type KidRollover struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Banked  string `json:"banked"`
	Monthly string `json:"monthly"`
}

// RolloverNotice announces that a week was closed and what each kid banked.
type RolloverNotice struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Revision  uint64        `json:"revision"`
	Kids      []KidRollover `json:"kids"`
}

// NewRolloverNotice builds a notice for the given kid names and rollover result.
func NewRolloverNotice(names []string, res core.RolloverResult, revision uint64) *RolloverNotice {
	kids := make([]KidRollover, len(names))
	for i, name := range names {
		kids[i] = KidRollover{
			Index:   i,
			Name:    name,
			Banked:  amountAt(res.Banked, i).StringFixed(2),
			Monthly: amountAt(res.Monthly, i).StringFixed(2),
		}
	}
	return &RolloverNotice{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Revision:  revision,
		Kids:      kids,
	}
}

func amountAt(xs []decimal.Decimal, i int) decimal.Decimal {
	if i < len(xs) {
		return xs[i]
	}
	return decimal.Zero
}

// ToJSON converts the message to JSON bytes
func (m *RolloverNotice) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RolloverNoticeFromJSON creates a message from JSON bytes
func RolloverNoticeFromJSON(data []byte) (*RolloverNotice, error) {
	var msg RolloverNotice
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
