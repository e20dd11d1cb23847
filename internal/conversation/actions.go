package conversation

// Action is an outbound effect decided by the engine and carried out by the
// Responder. The set of implementations is closed.
type Action interface {
	Kind() string
	isAction()
}

// SendText sends a plain text message.
type SendText struct {
	To   string
	Body string
}

// SendButtons sends an interactive message with up to three reply buttons.
type SendButtons struct {
	To      string
	Body    string
	Options []string
}

// SendImage sends an image by link with a caption.
type SendImage struct {
	To      string
	Link    string
	Caption string
}

// ForwardToAI asks the reasoner for an answer and sends it as text.
type ForwardToAI struct {
	To       string
	UserText string
}

// RecordBooking hands a completed booking to the side channels (email, queue).
type RecordBooking struct {
	UserID  string
	Name    string
	Service string
}

func (SendText) Kind() string      { return "send_text" }
func (SendButtons) Kind() string   { return "send_buttons" }
func (SendImage) Kind() string     { return "send_image" }
func (ForwardToAI) Kind() string   { return "forward_to_ai" }
func (RecordBooking) Kind() string { return "record_booking" }

func (SendText) isAction()      {}
func (SendButtons) isAction()   {}
func (SendImage) isAction()     {}
func (ForwardToAI) isAction()   {}
func (RecordBooking) isAction() {}
