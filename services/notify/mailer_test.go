package notify

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"refurb-app/services/catalog"
	"refurb-app/services/intake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type sent struct {
	from string
	to   []string
	raw  string
}

func captureSender(out *[]sent, err error) gomail.SendFunc {
	return func(from string, to []string, msg io.WriterTo) error {
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if _, werr := msg.WriteTo(&buf); werr != nil {
			return werr
		}
		*out = append(*out, sent{from: from, to: to, raw: buf.String()})
		return nil
	}
}

func fulfilledEvent() intake.FulfilledEvent {
	return intake.FulfilledEvent{
		Unit:        "refurb",
		Order:       intake.OrderHeader{ID: 1, PoNumber: "PO-20240101-001"},
		Fulfillment: intake.Fulfillment{TotalPlanned: 5, TotalReceived: 5, Eligible: true},
	}
}

func TestFulfilledSendsMail(t *testing.T) {
	var out []sent
	m := NewMailer(captureSender(&out, nil), "goods-in@example.com", []string{"buyer@example.com", "ops@example.com"})

	require.NoError(t, m.Fulfilled(fulfilledEvent()))
	require.Len(t, out, 1)
	assert.Equal(t, "goods-in@example.com", out[0].from)
	assert.Equal(t, []string{"buyer@example.com", "ops@example.com"}, out[0].to)
	assert.Contains(t, out[0].raw, "Subject: Purchase order PO-20240101-001 fully received")
}

func TestFulfilledWrapsSendError(t *testing.T) {
	var out []sent
	boom := errors.New("535 authentication failed")
	m := NewMailer(captureSender(&out, boom), "goods-in@example.com", []string{"buyer@example.com"})

	err := m.Fulfilled(fulfilledEvent())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, out)
}

func TestNewSMTPMailerDisabled(t *testing.T) {
	assert.Nil(t, NewSMTPMailer("", 465, "u", "p", "", []string{"a@example.com"}))
	assert.Nil(t, NewSMTPMailer("smtp.example.com", 465, "u", "p", "", nil))

	m := NewSMTPMailer("smtp.example.com", 465, "user@example.com", "p", "", []string{"a@example.com"})
	require.NotNil(t, m)
	assert.Equal(t, "user@example.com", m.from)
}

func TestTacImportedListsErrors(t *testing.T) {
	var out []sent
	m := NewMailer(captureSender(&out, nil), "goods-in@example.com", []string{"ops@example.com"})

	result := catalog.ImportResult{TotalRows: 3, SuccessCount: 2, ErrorCount: 1, ErrorMessages: []string{"Row 4: TAC must be 8 digits"}}
	require.NoError(t, m.TacImported("tac_2024.csv", 1, 1, result))
	require.Len(t, out, 1)
	assert.Contains(t, out[0].raw, "Subject: TAC catalogue import tac_2024.csv")
	assert.Contains(t, out[0].raw, "TAC must be 8 digits")
}
