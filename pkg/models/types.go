package models

type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse mirrors the {"detail": ...} body clients of the agent already parse.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
