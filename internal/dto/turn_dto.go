package dto

import "github.com/google/uuid"

// TurnRequest is the inbound websocket frame that starts an agent run.
type TurnRequest struct {
	Source  string       `json:"source" validate:"required,oneof=chat comment entity follow_up entry"`
	Message string       `json:"message"`
	Payload *TurnPayload `json:"payload"`
}

// TurnPayload carries the structured context of non-chat sources: the
// commented document and selection, the clicked entity, or the follow-up
// question picked from the list.
type TurnPayload struct {
	DocumentId         *uuid.UUID `json:"document_id"`
	SelectedText       string     `json:"selected_text"`
	SurroundingContext string     `json:"surrounding_context"`
	EntityName         string     `json:"entity_name"`
	FollowUpId         *uuid.UUID `json:"follow_up_id"`
	Question           string     `json:"question"`
}

// TurnCancelRequest asks the hub to abort the in-flight run.
type TurnCancelRequest struct {
	Action string `json:"action" validate:"required,eq=cancel"`
}
