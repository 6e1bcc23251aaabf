package llm

// Response represents an LLM response.
type Response struct {
	id         string
	model      string
	stopReason string
	message    *Message
	usage      Usage
}

// ID returns the unique identifier of the response.
func (r *Response) ID() string { return r.id }

// Model returns the model name that generated the response.
func (r *Response) Model() string { return r.model }

// StopReason returns why generation stopped.
func (r *Response) StopReason() string { return r.stopReason }

// Message returns the message content.
func (r *Response) Message() *Message { return r.message }

// Usage returns the token usage information.
func (r *Response) Usage() Usage { return r.usage }

// Text returns the text of the response message.
func (r *Response) Text() string {
	if r.message == nil {
		return ""
	}
	return r.message.Content
}

// ResponseOptions contains the configuration for creating a new Response.
type ResponseOptions struct {
	ID         string
	Model      string
	StopReason string
	Message    *Message
	Usage      Usage
}

// NewResponse creates a new Response instance with the given options.
func NewResponse(opts ResponseOptions) *Response {
	return &Response{
		id:         opts.ID,
		model:      opts.Model,
		stopReason: opts.StopReason,
		message:    opts.Message,
		usage:      opts.Usage,
	}
}
