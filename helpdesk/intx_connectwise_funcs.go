package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

func parseTicketID(ticketID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ticketID), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("ticket id %q is not a ConnectWise ticket number", ticketID)
	}
	return id, nil
}

func (cw *ConnectWiseClient) getTicket(ctx context.Context, ticketID string) (*CWTicket, error) {
	id, err := parseTicketID(ticketID)
	if err != nil {
		return nil, err
	}
	ticket := &CWTicket{}
	if err := cw.do(ctx, "getTicket", http.MethodGet, fmt.Sprintf("/service/tickets/%d", id), nil, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (cw *ConnectWiseClient) addTicketNote(ctx context.Context, ticketID string, text string, internal bool) (*CWTicketNote, error) {
	id, err := parseTicketID(ticketID)
	if err != nil {
		return nil, err
	}
	body := CWTicketNoteRequest{
		Text:                 text,
		InternalAnalysisFlag: internal,
		// ConnectWise rejects notes with no flag set
		DetailDescriptionFlag: !internal,
	}
	note := &CWTicketNote{}
	if err := cw.do(ctx, "addTicketNote", http.MethodPost, fmt.Sprintf("/service/tickets/%d/notes", id), body, note); err != nil {
		return nil, err
	}
	return note, nil
}

// PublishTicketNote posts the provisioning summary as an internal note.
func (cw *ConnectWiseClient) PublishTicketNote(ctx context.Context, ticketID string, note TicketNote) (NotePublishResult, error) {
	created, err := cw.addTicketNote(ctx, ticketID, note.Message, true)
	if err != nil {
		return NotePublishResult{Status: NOTE_PUBLISH_FAILURE, Message: err.Error()}, err
	}
	InfoLog.Println("posted connectwise note ", created.ID, " on ticket ", ticketID)
	return NotePublishResult{Status: NOTE_PUBLISH_SUCCESS, Message: fmt.Sprintf("Added note %d to ticket %s", created.ID, ticketID)}, nil
}
