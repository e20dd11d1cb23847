package whatsapp

// WebhookEvent is the top-level structure Meta posts for WhatsApp Business.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries one update; Field is "messages" for chat traffic.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds either inbound messages or delivery statuses.
type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Name string `json:"name"`
}

// Message is one inbound user message.
type Message struct {
	From        string          `json:"from"`
	ID          string          `json:"id"`
	Timestamp   string          `json:"timestamp"`
	Type        string          `json:"type"`
	Text        *TextBody       `json:"text,omitempty"`
	Interactive *Interactive    `json:"interactive,omitempty"`
	Button      *QuickReply     `json:"button,omitempty"`
	Context     *MessageContext `json:"context,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

// Interactive is a tap on a reply button or list row.
type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

type Reply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// QuickReply is a template quick-reply button tap.
type QuickReply struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

type MessageContext struct {
	From string `json:"from"`
	ID   string `json:"id"`
}

// Status is a delivery/read receipt for an outbound message.
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
	Timestamp   string `json:"timestamp"`
}

// SendRequest is the Graph API body for POST /{phone_number_id}/messages.
type SendRequest struct {
	MessagingProduct string               `json:"messaging_product"`
	RecipientType    string               `json:"recipient_type,omitempty"`
	To               string               `json:"to"`
	Type             string               `json:"type"`
	Text             *OutboundText        `json:"text,omitempty"`
	Interactive      *OutboundInteractive `json:"interactive,omitempty"`
	Image            *OutboundImage       `json:"image,omitempty"`
}

type OutboundText struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type OutboundInteractive struct {
	Type   string            `json:"type"`
	Body   InteractiveBody   `json:"body"`
	Action InteractiveAction `json:"action"`
}

type InteractiveBody struct {
	Text string `json:"text"`
}

type InteractiveAction struct {
	Buttons []OutboundButton `json:"buttons"`
}

type OutboundButton struct {
	Type  string `json:"type"`
	Reply Reply  `json:"reply"`
}

type OutboundImage struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

// SendResponse is the Graph API reply to a send.
type SendResponse struct {
	MessagingProduct string            `json:"messaging_product"`
	Contacts         []ResponseContact `json:"contacts,omitempty"`
	Messages         []ResponseMessage `json:"messages,omitempty"`
	Error            *APIError         `json:"error,omitempty"`
}

type ResponseContact struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

type ResponseMessage struct {
	ID string `json:"id"`
}

// APIError is the Graph API error object.
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id"`
}
