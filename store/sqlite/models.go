package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/flowstream/id"
	"github.com/xraph/flowstream/stream"
	"github.com/xraph/flowstream/types"
)

type streamModel struct {
	grove.BaseModel `grove:"table:flowstream_streams"`

	ID             string     `grove:"id,pk"`
	Sender         string     `grove:"sender"`
	Recipient      string     `grove:"recipient"`
	Token          string     `grove:"token"`
	DepositUnits   int64      `grove:"deposit_units"`
	FlowRateUnits  int64      `grove:"flow_rate_units"`
	WithdrawnUnits int64      `grove:"withdrawn_units"`
	StartTime      time.Time  `grove:"start_time"`
	StopTime       time.Time  `grove:"stop_time"`
	Active         bool       `grove:"active"`
	CancelledAt    *time.Time `grove:"cancelled_at"`
	Metadata       string     `grove:"metadata"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toStreamModel(s *stream.Stream) *streamModel {
	return &streamModel{
		ID:             s.ID.String(),
		Sender:         s.Sender.String(),
		Recipient:      s.Recipient.String(),
		Token:          s.Deposit.Token,
		DepositUnits:   s.Deposit.Units,
		FlowRateUnits:  s.FlowRate.Units,
		WithdrawnUnits: s.Withdrawn.Units,
		StartTime:      s.StartTime,
		StopTime:       s.StopTime,
		Active:         s.Active,
		CancelledAt:    s.CancelledAt,
		Metadata:       s.Metadata,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func fromStreamModel(m *streamModel) (*stream.Stream, error) {
	streamID, err := id.ParseStreamID(m.ID)
	if err != nil {
		return nil, err
	}

	return &stream.Stream{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          streamID,
		Sender:      types.Address(m.Sender),
		Recipient:   types.Address(m.Recipient),
		Deposit:     types.NewUnits(m.Token, m.DepositUnits),
		FlowRate:    types.NewUnits(m.Token, m.FlowRateUnits),
		Withdrawn:   types.NewUnits(m.Token, m.WithdrawnUnits),
		StartTime:   m.StartTime,
		StopTime:    m.StopTime,
		Active:      m.Active,
		CancelledAt: m.CancelledAt,
		Metadata:    m.Metadata,
	}, nil
}
