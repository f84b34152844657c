package domain

// InboundMessage is what the message source hands the copier: a stable
// identifier, the free text (OCR output included, if any), whether the
// source channel is privileged (VIP), and the parent message id when the
// message is a reply to an earlier alert.
type InboundMessage struct {
	ID         string `json:"messageId"`
	Text       string `json:"text"`
	Privileged bool   `json:"privileged"`
	ReplyTo    string `json:"replyTo,omitempty"`
}
