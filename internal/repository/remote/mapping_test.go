package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

func TestDecodeListAcceptsEnvelopeAndBareArray(t *testing.T) {
	wrapped := []byte(`{"threads":[{"id":"a","title":"one"},{"id":"b","title":"two"}]}`)
	bare := []byte(`[{"id":"a","title":"one"}]`)
	data := []byte(`{"data":[{"id":"a"}]}`)

	got, err := decodeList[wireThread](wrapped, "threads")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = decodeList[wireThread](bare, "threads")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = decodeList[wireThread](data, "threads")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = decodeList[wireThread]([]byte(`{"items":[]}`), "threads")
	assert.ErrorIs(t, err, errMalformed)

	_, err = decodeList[wireThread]([]byte(`not json`), "threads")
	assert.ErrorIs(t, err, errMalformed)
}

func TestToTicketNormalisesLegacyDialect(t *testing.T) {
	body := []byte(`{
		"id": "t-1",
		"title": "Wifi down",
		"issue": "cannot connect in dorm B",
		"issueType": "technical",
		"status": "pending",
		"priority": "normal",
		"assignedTo": "",
		"student": {"id": "s-9", "username": "student1", "full_name": "Nguyen Van A"},
		"created_at": "2026-03-01T09:00:00.123456",
		"messages": [
			{"id": "m-1", "sender": "student", "text": "cannot connect", "created_at": "2026-03-01T09:00:00Z"}
		]
	}`)

	wire, err := decodeObject[wireThread](body)
	require.NoError(t, err)
	ticket, err := toTicket(wire)
	require.NoError(t, err)

	assert.Equal(t, "t-1", ticket.ID)
	assert.Equal(t, "cannot connect in dorm B", ticket.Description)
	assert.Equal(t, domain.IssueTypeTechnical, ticket.IssueType)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Nil(t, ticket.AssignedTo)
	assert.Equal(t, "s-9", ticket.StudentID)
	assert.Equal(t, "Nguyen Van A", ticket.StudentName)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 123456000, time.UTC), ticket.CreatedAt)
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)

	require.Len(t, ticket.Messages, 1)
	assert.Equal(t, domain.SenderTypeUser, ticket.Messages[0].SenderType)
	assert.Equal(t, "cannot connect", ticket.Messages[0].Content)
	assert.Equal(t, "t-1", ticket.Messages[0].ThreadID)
}

func TestToTicketCanonicalDialect(t *testing.T) {
	dept := "IT Department"
	wire := wireThread{
		ID:          "t-2",
		Title:       "Exam",
		IssueType:   "complaint",
		Status:      "solved",
		Priority:    "urgent",
		AssignedTo:  &dept,
		StudentID:   "s-1",
		StudentName: "A",
	}
	ticket, err := toTicket(wire)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, domain.IssueTypeOther, ticket.IssueType)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, dept, *ticket.AssignedTo)
}

func TestToTicketRejectsUnknownStatus(t *testing.T) {
	_, err := toTicket(wireThread{ID: "x", Status: "archived"})
	assert.ErrorIs(t, err, errMalformed)

	_, err = toTicket(wireThread{Title: "no id"})
	assert.ErrorIs(t, err, errMalformed)
}

func TestToMessageSenderVariants(t *testing.T) {
	cases := []struct {
		name string
		wire wireMessage
		want domain.SenderType
	}{
		{"role name for staff", wireMessage{Sender: "department", Text: "x"}, domain.SenderTypeStaff},
		{"explicit sender type", wireMessage{SenderType: "user", Content: "x"}, domain.SenderTypeUser},
		{"camel case", wireMessage{SenderTypeCamel: "staff", Content: "x"}, domain.SenderTypeStaff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := toMessage(tc.wire, "t")
			require.NoError(t, err)
			assert.Equal(t, tc.want, msg.SenderType)
		})
	}

	_, err := toMessage(wireMessage{Sender: "robot"}, "t")
	assert.ErrorIs(t, err, errMalformed)
}

func TestWireTimeRejectsGarbage(t *testing.T) {
	var wt wireTime
	assert.Error(t, wt.UnmarshalJSON([]byte(`"yesterday"`)))
	assert.NoError(t, wt.UnmarshalJSON([]byte(`null`)))
	assert.True(t, wt.IsZero())
}
