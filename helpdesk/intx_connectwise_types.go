package main

type CWTicketNoteRequest struct {
	Text                  string `json:"text"`
	DetailDescriptionFlag bool   `json:"detailDescriptionFlag"`
	InternalAnalysisFlag  bool   `json:"internalAnalysisFlag"`
	ResolutionFlag        bool   `json:"resolutionFlag"`
}

type CWTicketNote struct {
	ID                    int64  `json:"id"`
	TicketID              int64  `json:"ticketId"`
	Text                  string `json:"text"`
	InternalAnalysisFlag  bool   `json:"internalAnalysisFlag"`
	DetailDescriptionFlag bool   `json:"detailDescriptionFlag"`
	DateCreated           string `json:"dateCreated"`
}

type CWReference struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier,omitempty"`
	Name       string `json:"name"`
}

type CWTicket struct {
	ID      int64       `json:"id"`
	Summary string      `json:"summary"`
	Board   CWReference `json:"board"`
	Status  CWReference `json:"status"`
	Company CWReference `json:"company"`
}

type CWErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Resource string `json:"resource"`
		Field    string `json:"field"`
	} `json:"errors"`
}
