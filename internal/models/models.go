package models

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Detail repeats Error for the web frontend.
	Detail  string `json:"detail,omitempty"`
	Message string `json:"message"`
}

type ContentResponse struct {
	Content string `json:"content"`
}

type StudentReplyRequest struct {
	StudentName string `json:"student_name"`
	Name        string `json:"name"`
}

type HolidayNoticeRequest struct {
	HolidayName string `json:"holiday_name"`
	HolidayDate string `json:"holiday_date"`
	Name        string `json:"name"`
}

type FreePromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Tone   string `json:"tone"`
}

type EditRequest struct {
	Content     string `json:"content" binding:"required"`
	Instruction string `json:"instruction" binding:"required"`
}

type SelfTemplate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
